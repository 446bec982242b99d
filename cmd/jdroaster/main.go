package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"jdroaster/internal/cli"
	"jdroaster/internal/config"
	"jdroaster/internal/errors"

	"github.com/joho/godotenv"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A local .env supplies JDROASTER_* variables during development
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to read .env file: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Starting jdroaster",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"catalog_source", cfg.Analyzer.CatalogSource)

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
