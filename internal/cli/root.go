package cli

import (
	"context"
	"fmt"

	"jdroaster/internal/config"
	"jdroaster/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jdroaster",
		Short: "A deterministic job description analyzer",
		Long: `jdroaster reads a job description and reports red flags, green flags
and five dimension scores using a fixed rule catalog. The same text always
produces the same findings and scores.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newSentencesCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree with cfg and logger attached to ctx
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return execute(ctx, cfg, logger, newRootCmd())
}

func execute(ctx context.Context, cfg *config.Config, logger *errors.Logger, rootCmd *cobra.Command) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	return rootCmd.ExecuteContext(ctx)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

// commandContext fetches both values every RunE needs
func commandContext(cmd *cobra.Command) (*config.Config, *errors.Logger, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
