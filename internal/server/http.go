package server

import (
	"io"
	"os"
	"time"

	"jdroaster/internal/analyzer"
	"jdroaster/internal/config"
	"jdroaster/internal/errors"
	"jdroaster/internal/observability"
)

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Analysis pipeline shared by all requests; it holds no per-request state
	Analyzer *analyzer.Analyzer

	// Minimum trimmed length of rawText accepted by /api/analyze-text
	MinTextLength int

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Certificate management
	CertificateManager *CertificateManager

	// Vault client, nil when Vault is disabled
	VaultClient *config.VaultClient

	// Timeout configurations
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *errors.Logger

	om  *observability.ObservabilityManager
	out io.Writer
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host            string
	Port            string
	Version         string
	Analyzer        *analyzer.Analyzer
	MinTextLength   int
	TLSConfig       config.TLSConfig
	VaultClient     *config.VaultClient
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxRequestSize  int64
	RateLimit       *config.RateLimitConfig
}

// NewServerConfig copies the server and analyzer sections of the
// application configuration into a ServerConfig
func NewServerConfig(cfg *config.Config, version string, a *analyzer.Analyzer, vc *config.VaultClient) ServerConfig {
	return ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Version:         version,
		Analyzer:        a,
		MinTextLength:   cfg.Analyzer.MinTextLength,
		TLSConfig:       cfg.Server.TLS,
		VaultClient:     vc,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxRequestSize:  cfg.Server.MaxRequestSize,
		RateLimit:       &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *errors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			cfg.RateLimit.CleanupInterval,
			cfg.RateLimit.IdleTTL,
			logger,
		)
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         cfg.Version,
		AppConfig:       appCfg,
		Analyzer:        cfg.Analyzer,
		MinTextLength:   cfg.MinTextLength,
		TLSConfig:       cfg.TLSConfig,
		VaultClient:     cfg.VaultClient,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxRequestSize:  cfg.MaxRequestSize,
		RateLimit:       cfg.RateLimit,
		RateLimiter:     rateLimiter,
		Logger:          logger,
		out:             os.Stdout,
	}
}
