package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/cmd/cli/commands"
	"github.com/jakechorley/training-signups/internal/config"
	"github.com/jakechorley/training-signups/pkg/clients/discordclient"
	"github.com/jakechorley/training-signups/pkg/core/services"
	"github.com/jakechorley/training-signups/pkg/db"
	"github.com/jakechorley/training-signups/pkg/db/memory"
	"github.com/jakechorley/training-signups/pkg/postgres"
	"github.com/jakechorley/training-signups/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	closeDB func()
)

func main() {
	app := &commands.AppContext{}

	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Training signups CLI - Run raid trainings from publishing to assignment",
		Long: `A CLI tool for scheduling raid trainings, collecting role signups,
resolving who plays which role and exporting the result.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(app)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeDB != nil {
				closeDB()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(
		commands.CreateRoleCmd(app),
		commands.DeactivateRoleCmd(app),
		commands.ListRolesCmd(app),

		commands.CreateTierCmd(app),
		commands.DeleteTierCmd(app),
		commands.MapTierCmd(app),
		commands.UnmapTierCmd(app),
		commands.ListTiersCmd(app),
		commands.ResolveTierCmd(app),

		commands.CreateTrainingCmd(app),
		commands.ScheduleTrainingsCmd(app),
		commands.ListTrainingsCmd(app),
		commands.CountTrainingsCmd(app),
		commands.ShowTrainingCmd(app),
		commands.AdvanceTrainingCmd(app),
		commands.SetTrainingTierCmd(app),
		commands.DeleteTrainingCmd(app),
		commands.AddSlotsCmd(app),
		commands.RemoveSlotCmd(app),

		commands.CreateBossCmd(app),
		commands.ListBossesCmd(app),
		commands.AttachBossCmd(app),
		commands.DetachBossCmd(app),
		commands.SetPreferencesCmd(app),

		commands.RegisterCmd(app),
		commands.WithdrawCmd(app),
		commands.CommentCmd(app),
		commands.ListSignupsCmd(app),
		commands.MySignupsCmd(app),
		commands.SetProfileCmd(app),

		commands.ResolveAssignmentCmd(app),
		commands.ShowAssignmentCmd(app),
		commands.ExportAssignmentCmd(app),

		commands.InteractiveCmd(app),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, store, Discord and the service
func initApp(app *commands.AppContext) error {
	var err error
	app.Env = env
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger.Info("Starting application")

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("store", app.Cfg.Store))

	store, err := openStore(app.Ctx, app.Cfg, app.Logger)
	if err != nil {
		return err
	}

	var opts []services.Option
	if app.Cfg.Discord != nil {
		app.Logger.Info("Initializing Discord client", zap.String("guild_id", app.Cfg.Discord.GuildID))
		discord, err := discordclient.NewClient(
			app.Cfg.Discord.Token,
			app.Cfg.Discord.GuildID,
			app.Cfg.Discord.NotificationChannelID,
			app.Logger,
		)
		if err != nil {
			return err
		}
		opts = append(opts, services.WithOracle(discord), services.WithNotifier(discord))
	}

	app.Service = services.New(store, app.Logger, opts...)
	app.Logger.Debug("Service initialized successfully")

	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Store, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("Using the in-memory store, nothing is kept after this process exits")
		return memory.NewStore(), nil
	}

	logger.Info("Connecting to database")
	database, err := postgres.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB = database.Close

	if err := database.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database initialized successfully")

	return database, nil
}
