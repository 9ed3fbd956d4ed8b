package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ConfigService holds dependencies and provides config operations.
type ConfigService struct {
	Logger     *slog.Logger
	Client     *http.Client
	Config     *Config
	MaxRetries int
}

// NewConfigService creates a new ConfigService instance with the provided logger and HTTP client.
func NewConfigService(logger *slog.Logger, client *http.Client, config *Config) *ConfigService {
	return &ConfigService{
		Logger:     logger,
		Client:     client,
		Config:     config,
		MaxRetries: 3,
	}
}

func (cs *ConfigService) RefreshConfig(ctx context.Context, url, authUser, authPass string, interval time.Duration) {
	refreshConfig(ctx, cs.Client, url, authUser, authPass, cs.Config, cs.Logger, interval, cs.MaxRetries)
}

// exported helper functions

// LoadConfigFromFile loads the settings document from a local file.
func LoadConfigFromFile(filePath string) (*Settings, error) {
	settings, err := loadConfigFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from file %s: %w", filePath, err)
	}
	return settings, nil
}

// LoadConfigFromURL loads the settings document from a remote URL.
func LoadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string, maxRetries int) (*Settings, error) {
	settings, err := loadConfigFromURL(ctx, client, url, authUser, authPass, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from URL %s: %w", url, err)
	}
	return settings, nil
}
