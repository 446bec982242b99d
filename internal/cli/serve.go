package cli

import (
	"fmt"

	"jdroaster/internal/config"
	"jdroaster/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveFlags maps config keys to the flags that override them
var serveFlags = []struct{ key, flag string }{
	{"server.host", "host"},
	{"server.port", "port"},
	{"server.tls.mode", "tls-mode"},
	{"server.tls.certFile", "cert-file"},
	{"server.tls.keyFile", "key-file"},
	{"server.tls.caFile", "ca-file"},
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP analysis server",
		Long: `Start an HTTP server exposing the analyzer.

Available endpoints:
- POST /api/analyze-text: Analyze a job description
- POST /api/debug-sentences: Show normalization and segmentation
- GET /api/catalog: List the active rule catalog
- GET /health: Health check with catalog and certificate status
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	cmd.Flags().String("host", "", "Host to bind to (default from config)")
	cmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	cmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	cmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	cmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	return cmd
}

// applyServeFlags layers changed flags over the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	v := viper.New()
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.tls.mode", cfg.Server.TLS.Mode)
	v.SetDefault("server.tls.certFile", cfg.Server.TLS.CertFile)
	v.SetDefault("server.tls.keyFile", cfg.Server.TLS.KeyFile)
	v.SetDefault("server.tls.caFile", cfg.Server.TLS.CAFile)

	for _, f := range serveFlags {
		if err := v.BindPFlag(f.key, cmd.Flags().Lookup(f.flag)); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", f.flag, err)
		}
	}

	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetString("server.port")
	cfg.Server.TLS.Mode = v.GetString("server.tls.mode")
	cfg.Server.TLS.CertFile = v.GetString("server.tls.certFile")
	cfg.Server.TLS.KeyFile = v.GetString("server.tls.keyFile")
	cfg.Server.TLS.CAFile = v.GetString("server.tls.caFile")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}

	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	vc, err := connectVault(cfg, true, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to vault: %w", err)
	}
	if err := config.ApplyVaultSecrets(cfg, vc, logger); err != nil {
		return fmt.Errorf("failed to apply vault secrets: %w", err)
	}

	// Vault material is in place now, so check it like local material
	check := &config.Config{Server: cfg.Server, Vault: cfg.Vault}
	check.Vault.Enabled = false
	if err := check.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	a, err := buildAnalyzer(cfg, "", vc, logger)
	if err != nil {
		return fmt.Errorf("failed to build analyzer: %w", err)
	}

	serverCfg := server.NewServerConfig(cfg, Version, a, vc)
	return server.NewServer(cfg, serverCfg, logger).Start(cmd.Context())
}
