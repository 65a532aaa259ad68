// Package cli wires configuration, logging, backends and services into the
// horeca command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"horeca/internal/config"
	"horeca/internal/log"
	"horeca/internal/taxonomy"
)

// LoadEnvFile loads environment variables from path, or from ./.env when
// path is empty. A missing default file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg and installs it as the
// slog default. The closer releases the log file.
func SetupLogger(cfg *config.Config) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := log.New(log.Config{
		Level:     level,
		Component: log.ComponentApp,
		File:      cfg.LogFile,
	})
	if err != nil {
		return nil, nil, err
	}
	log.SetDefault(logger)
	return logger, closer, nil
}

// LoadTaxonomy reads the taxonomy at path, or the embedded default.
func LoadTaxonomy(path string) (*taxonomy.Taxonomy, error) {
	if path == "" {
		return taxonomy.Default()
	}
	return taxonomy.LoadFile(path)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
