package cli

import (
	"context"
	"fmt"
	"time"

	"jdroaster/internal/analyzer"
	"jdroaster/internal/catalog"
	"jdroaster/internal/common"
	"jdroaster/internal/config"
	"jdroaster/internal/errors"
	"jdroaster/internal/observability"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// shutdownGrace bounds the telemetry flush after a one-shot command
const shutdownGrace = 5 * time.Second

// connectVault opens a Vault client only when something will read from it
func connectVault(cfg *config.Config, needed bool, logger *errors.Logger) (*config.VaultClient, error) {
	if !needed || !cfg.Vault.Enabled {
		return nil, nil
	}
	return config.NewVaultClient(cfg.Vault, logger)
}

// buildAnalyzer resolves the rule catalog and assembles the pipeline.
// catalogOverride, when set, names a catalog file that replaces the
// configured source.
func buildAnalyzer(cfg *config.Config, catalogOverride string, vc *config.VaultClient, logger *errors.Logger) (*analyzer.Analyzer, error) {
	// a typed nil must not reach the interface
	var secrets catalog.SecretReader
	if vc != nil {
		secrets = vc
	}

	cat, err := config.LoadCatalog(cfg, catalogOverride, secrets, logger)
	if err != nil {
		return nil, err
	}

	return analyzer.New(cat,
		analyzer.WithSegmenter(analyzer.NewSegmenter(cfg.SegmenterOptions()...)),
		analyzer.WithReportVersion(cfg.Analyzer.ReportVersion),
		analyzer.WithIDGenerator(uuid.NewString),
		analyzer.WithLogger(logger),
	), nil
}

// analyzerForCommand builds the analyzer for a one-shot command, connecting
// to Vault only when the catalog lives there
func analyzerForCommand(cfg *config.Config, catalogOverride string, logger *errors.Logger) (*analyzer.Analyzer, error) {
	needsVault := catalogOverride == "" && cfg.Analyzer.CatalogSource == config.CatalogSourceVault
	vc, err := connectVault(cfg, needsVault, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	return buildAnalyzer(cfg, catalogOverride, vc, logger)
}

// newCommandObservability starts telemetry for a one-shot command. There is
// no listener to scrape, so the Prometheus reader stays off.
func newCommandObservability(cfg *config.Config, logger *errors.Logger) (*observability.ObservabilityManager, func()) {
	obsConfig := observability.GetObservabilityConfig(cfg, Version)
	obsConfig.Prometheus.Enabled = false

	om, err := observability.NewObservabilityManager(obsConfig, logger)
	if err != nil {
		logger.Warn("Observability disabled", "error", err)
		return nil, func() {}
	}
	return om, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush telemetry", "error", err)
		}
	}
}

// addOutputFlags registers -o and --format on cmd
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVarP(&cc.OutputFormat, "format", "f", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutputFormat applies the configured default and checks the result
func resolveOutputFormat(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	// Apply default format if not specified
	if cc.OutputFormat == "" {
		cc.OutputFormat = cfg.App.DefaultFormat
	}
	return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats)
}

// commandEnv wires the command's streams into the shared runner
func commandEnv(cmd *cobra.Command, cfg *config.Config, logger *errors.Logger) common.CommandEnv {
	return common.CommandEnv{
		Logger:      logger,
		Stdin:       cmd.InOrStdin(),
		Stdout:      cmd.OutOrStdout(),
		MaxFileSize: cfg.App.MaxFileSize,
	}
}

func inputArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
