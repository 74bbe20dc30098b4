package sheetsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	authPort       = 3000
	authTimeout    = 5 * time.Minute
	callbackPath   = "/oauth/callback"
	tokenDirName   = ".training-signups/tokens"
	tokenFilePerms = 0600
	tokenDirPerms  = 0700
)

type credentialsType int

const (
	kindUnknown credentialsType = iota
	kindServiceAccount
	kindOAuthClient
)

// credentialsKind tells service account keys from OAuth client secrets
func credentialsKind(data []byte) credentialsType {
	var credentials struct {
		Type      string          `json:"type"`
		Installed json.RawMessage `json:"installed"`
		Web       json.RawMessage `json:"web"`
	}
	if err := json.Unmarshal(data, &credentials); err != nil {
		return kindUnknown
	}
	switch {
	case credentials.Type == "service_account":
		return kindServiceAccount
	case credentials.Installed != nil || credentials.Web != nil:
		return kindOAuthClient
	}
	return kindUnknown
}

func serviceAccountOption(ctx context.Context, data []byte) (option.ClientOption, error) {
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	return option.WithCredentials(creds), nil
}

func oauthClientOption(ctx context.Context, data []byte, env string, logger *zap.Logger) (option.ClientOption, error) {
	cfg, err := google.ConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse oauth client: %w", err)
	}
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d%s", authPort, callbackPath)

	token, err := loadToken(env)
	if err != nil {
		logger.Warn("Ignoring unreadable token file", zap.Error(err))
	}
	if token == nil {
		token, err = authorize(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := saveToken(env, token); err != nil {
			logger.Warn("Failed to save token", zap.Error(err))
		}
	}

	source := &persistingSource{
		base:   cfg.TokenSource(ctx, token),
		env:    env,
		last:   token.AccessToken,
		logger: logger,
	}
	if _, err := source.Token(); err != nil {
		return nil, fmt.Errorf("failed to obtain oauth token: %w", err)
	}
	return option.WithTokenSource(oauth2.ReuseTokenSource(nil, source)), nil
}

// authorize runs the browser flow and exchanges the code for a token
func authorize(ctx context.Context, cfg *oauth2.Config, logger *zap.Logger) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline)
	logger.Info("Authorize the application in a browser", zap.String("url", authURL))

	code, err := listenForCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

// listenForCode serves the redirect URL until Google calls back with a code
func listenForCode(ctx context.Context) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			select {
			case errCh <- errors.New("no authorization code received"):
			default:
			}
			return
		}
		fmt.Fprintln(w, "Authorization successful, you can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	})

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", authPort))
	if err != nil {
		return "", fmt.Errorf("failed to listen for callback: %w", err)
	}
	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-timeoutCtx.Done():
		return "", fmt.Errorf("authorization timeout after %v", authTimeout)
	}
}

// persistingSource saves every new access token it hands out
type persistingSource struct {
	base   oauth2.TokenSource
	env    string
	last   string
	logger *zap.Logger
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		if err := saveToken(s.env, token); err != nil {
			s.logger.Warn("Failed to save token", zap.Error(err))
		}
		s.last = token.AccessToken
	}
	return token, nil
}

func tokenPath(env string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, tokenDirName, fmt.Sprintf("token-%s.json", env)), nil
}

// loadToken returns nil without error when no token has been saved yet
func loadToken(env string) (*oauth2.Token, error) {
	path, err := tokenPath(env)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

func saveToken(env string, token *oauth2.Token) error {
	path, err := tokenPath(env)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
