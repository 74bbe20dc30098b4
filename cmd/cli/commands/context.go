package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/internal/config"
	"github.com/jakechorley/training-signups/pkg/clients/sheetsclient"
	"github.com/jakechorley/training-signups/pkg/core/services"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env     string
	Cfg     *config.Config
	Service *services.Service
	Logger  *zap.Logger
	Ctx     context.Context

	sheetsClient *sheetsclient.Client
}

// SheetsClient connects to Google Sheets on first use, so commands that do
// not export never need credentials
func (a *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	if a.sheetsClient != nil {
		return a.sheetsClient, nil
	}
	if a.Cfg.Export == nil {
		return nil, fmt.Errorf("export is not configured for environment %q", a.Env)
	}

	a.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(a.Ctx, a.Cfg.Export.CredentialsFile, a.Env, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	a.sheetsClient = client
	return client, nil
}
