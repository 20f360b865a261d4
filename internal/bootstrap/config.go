// Package bootstrap wires configuration into running service components.
package bootstrap

import (
	"errors"
	"fmt"
	"log"

	"github.com/jonesrussell/north-cloud/sentiment/internal/config"
	infraconfig "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/config"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
)

// LoadConfig loads and validates configuration. A missing file falls back
// to defaults; any other load or validation failure is returned.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = infraconfig.GetConfigPath("config.yml")
	}

	cfg, err := config.Load(path)
	if errors.Is(err, infraconfig.ErrConfigNotFound) {
		log.Printf("Warning: config file %s not found, using defaults", path)
		cfg = &config.Config{}
		config.SetDefaults(cfg)
		infraconfig.ApplyEnvOverrides(cfg)
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates the service logger from configuration.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	lc := cfg.Logging
	lc.Development = lc.Development || cfg.Service.Debug

	l, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l.With(logger.String("service", cfg.Service.Name)), nil
}
