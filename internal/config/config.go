package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// DiscordConfig configures the guild used for membership lookups and notifications
type DiscordConfig struct {
	Token   string `yaml:"token" validate:"required"`
	GuildID string `yaml:"guildID" validate:"required"`
	// NotificationChannelID receives training events. Events are only logged when empty.
	NotificationChannelID string `yaml:"notificationChannelID,omitempty"`
}

// ExportConfig configures publishing assignments to Google Sheets
type ExportConfig struct {
	SpreadsheetID   string `yaml:"spreadsheetID" validate:"required"`
	CredentialsFile string `yaml:"credentialsFile" validate:"required"`
}

// TrainingTemplate describes a recurring training
type TrainingTemplate struct {
	Name  string `yaml:"name" validate:"required"`
	Title string `yaml:"title" validate:"required"`
	RRule string `yaml:"rrule" validate:"required"`
	// Tier is the name of the required tier, if any
	Tier string `yaml:"tier,omitempty"`
	// Slots maps role codes to the number of openings
	Slots map[string]int `yaml:"slots" validate:"required,min=1,dive,keys,required,endkeys,min=1"`
	// Bosses are boss codes attached to every scheduled training
	Bosses []string `yaml:"bosses,omitempty" validate:"dive,required"`
}

// Config represents the application configuration
type Config struct {
	Store             string             `yaml:"store" validate:"required,oneof=postgres memory"`
	DatabaseURL       string             `yaml:"databaseURL,omitempty" validate:"required_if=Store postgres"`
	Discord           *DiscordConfig     `yaml:"discord,omitempty"`
	Export            *ExportConfig      `yaml:"export,omitempty"`
	TrainingTemplates []TrainingTemplate `yaml:"trainingTemplates,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Template returns the training template with the given name
func (c *Config) Template(name string) (*TrainingTemplate, error) {
	for i := range c.TrainingTemplates {
		if c.TrainingTemplates[i].Name == name {
			return &c.TrainingTemplates[i], nil
		}
	}
	return nil, fmt.Errorf("no training template named %q", name)
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="test" looks for "trainings_config.test.yaml".
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, template names and rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[string]bool, len(cfg.TrainingTemplates))
	for i, tmpl := range cfg.TrainingTemplates {
		if seen[tmpl.Name] {
			return fmt.Errorf("duplicate template name %q in trainingTemplates[%d]", tmpl.Name, i)
		}
		seen[tmpl.Name] = true

		if _, err := rrule.StrToRRule(tmpl.RRule); err != nil {
			return fmt.Errorf("invalid rrule in trainingTemplates[%d]: %w", i, err)
		}
	}

	return nil
}

// findConfigFile searches for the environment's config file in the current
// directory, then in the user's home directory
func findConfigFile(env string) (string, error) {
	configFileName := fmt.Sprintf("trainings_config.%s.yaml", env)

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
