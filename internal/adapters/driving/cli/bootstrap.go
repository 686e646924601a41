package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	configfile "github.com/custodia-labs/taskbridge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/taskbridge/internal/adapters/driven/lark"
	"github.com/custodia-labs/taskbridge/internal/adapters/driven/mqtt"
	storagefile "github.com/custodia-labs/taskbridge/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/taskbridge/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/services"
	"github.com/custodia-labs/taskbridge/internal/logger"
)

// app holds the wired component graph for one process.
type app struct {
	settings  domain.Settings
	tokens    *services.TokenManager
	pipeline  *services.SyncPipeline
	health    *services.HealthService
	publisher *mqtt.Publisher
	store     *sqlite.Store
}

// buildApp loads configuration and wires adapters into core services.
// Nothing is connected yet; the caller decides when to dial out.
func buildApp() (*app, error) {
	configStore, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}

	settings := configfile.LoadSettings(configStore)
	if !settings.Lark.IsConfigured() {
		return nil, fmt.Errorf("lark app credentials not configured (set lark.app_id and lark.app_secret in %s)", configStore.Path())
	}
	if !settings.Broker.IsConfigured() {
		return nil, fmt.Errorf("broker not configured (set broker.url and broker.base_topic in %s)", configStore.Path())
	}

	dataDir, err := resolveDataDir(settings.DataDir)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open scheduler store: %w", err)
	}

	publisher, err := mqtt.NewPublisher(settings.Broker)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("configure broker client: %w", err)
	}

	larkClient := lark.NewClient(settings.Lark)
	credStore := storagefile.NewCredentialsStore(dataDir)

	tokens := services.NewTokenManager(bootstrapCredentials(settings.Bootstrap), larkClient, credStore)
	tokens.Load()

	pipeline := services.NewSyncPipeline(tokens, larkClient, publisher, settings.Broker.BaseTopic)
	health := services.NewHealthService(publisher, tokens, settings.Sync.Interval > 0)

	return &app{
		settings:  settings,
		tokens:    tokens,
		pipeline:  pipeline,
		health:    health,
		publisher: publisher,
		store:     store,
	}, nil
}

// bootstrapCredentials seeds the token manager from configuration. The
// access token's expiry is unknown at this point; the first API rejection
// triggers a refresh.
func bootstrapCredentials(bootstrap domain.BootstrapSettings) domain.Credentials {
	creds := domain.Credentials{
		AccessToken:  bootstrap.AccessToken,
		RefreshToken: bootstrap.RefreshToken,
	}
	if bootstrap.RefreshToken != "" {
		creds.RefreshExpiresAt = time.Now().Add(bootstrap.RefreshExpiresIn)
	}
	return creds
}

// resolveDataDir picks where the credential file and run-history database
// live: explicit setting, then the config directory, then ~/.taskbridge.
func resolveDataDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if configDir != "" {
		return configDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".taskbridge"), nil
}

// close releases held resources.
func (a *app) close() {
	a.publisher.Disconnect()
	if err := a.store.Close(); err != nil {
		logger.Warn("Failed to close scheduler store: %v", err)
	}
}

// logStartup prints the startup diagnostic block.
func (a *app) logStartup() {
	logger.Section("Startup")
	logger.Info("Task API: %s", a.settings.Lark.BaseURL)
	logger.Info("Broker: %s (topic %s/tasks)", a.settings.Broker.URL, a.settings.Broker.BaseTopic)
	if a.settings.Sync.Interval > 0 {
		logger.Info("Auto sync: every %s", a.settings.Sync.Interval)
	} else {
		logger.Info("Auto sync: disabled")
	}
	status := a.tokens.Status()
	logger.Info("Credentials: access=%t refresh=%t state=%s",
		status.HasAccessToken, status.HasRefreshToken, status.State)
}
