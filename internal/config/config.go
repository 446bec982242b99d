package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"jdroaster/internal/analyzer"
	"jdroaster/internal/catalog"

	"github.com/spf13/viper"
)

// Catalog sources
const (
	CatalogSourceEmbedded = "embedded"
	CatalogSourceFile     = "file"
	CatalogSourceVault    = "vault"
)

// Config holds all application configuration
// Precedence Order:
// 1. Vault secrets (catalog, TLS material) when enabled
// 2. Environment Variables (JDROASTER_SERVER_PORT, etc.)
// 3. Config File values
// 4. Default values
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Analyzer      AnalyzerConfig      `mapstructure:"analyzer"`
	Server        ServerConfig        `mapstructure:"server"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// AnalyzerConfig selects the rule catalog and tunes the pipeline
type AnalyzerConfig struct {
	CatalogSource string `mapstructure:"catalogSource"` // embedded, file, vault
	CatalogPath   string `mapstructure:"catalogPath"`   // used when catalogSource is file
	CatalogFormat string `mapstructure:"catalogFormat"` // format of the Vault-held catalog
	Segmenter     string `mapstructure:"segmenter"`     // unicode, simple
	MinTextLength int    `mapstructure:"minTextLength"` // minimum trimmed length accepted over HTTP
	ReportVersion int    `mapstructure:"reportVersion"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxRequestSize  int64         `mapstructure:"maxRequestSize"`

	TLS       TLSConfig       `mapstructure:"tls"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // TLS mode: "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Server private key file (PEM)
	CAFile   string `mapstructure:"caFile"`   // CA bundle for client verification (mutual mode)

	// Certificate content (inline or loaded from Vault)
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string `mapstructure:"minVersion"`       // "1.2", "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig holds configuration for automatic certificate reloading
type AutoReloadConfig struct {
	Enabled      bool               `mapstructure:"enabled"`
	FileWatcher  FileWatcherConfig  `mapstructure:"fileWatcher"`
	VaultWatcher VaultWatcherConfig `mapstructure:"vaultWatcher"`
}

// FileWatcherConfig holds configuration for file-based certificate watching
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// VaultWatcherConfig holds configuration for Vault-based certificate watching
type VaultWatcherConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RequestsPerMin  int           `mapstructure:"requestsPerMin"`
	BurstCapacity   int           `mapstructure:"burstCapacity"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval"` // how often idle limiters are swept
	IdleTTL         time.Duration `mapstructure:"idleTTL"`         // limiters unused this long are dropped
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Console         ConsoleConfig     `mapstructure:"console"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console exporter configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from environment variables and a config file.
// JDROASTER_CONFIG names an explicit config file and skips the search paths.
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("JDROASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'JDROASTER'")

	if explicit := os.Getenv("JDROASTER_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
		log.Printf("[CONFIG] Using explicit config file: %s", explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/jdroaster/")
		v.AddConfigPath("$HOME/.jdroaster")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/jdroaster/, $HOME/.jdroaster, .")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.validateAnalyzer(); err != nil {
		return fmt.Errorf("analyzer configuration error: %w", err)
	}

	if c.Server.MaxRequestSize <= 0 {
		return fmt.Errorf("server maxRequestSize must be positive")
	}

	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RequestsPerMin <= 0 || c.Server.RateLimit.BurstCapacity <= 0) {
		return fmt.Errorf("rate limit requestsPerMin and burstCapacity must be positive when enabled")
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateAnalyzer() error {
	a := c.Analyzer

	switch a.CatalogSource {
	case CatalogSourceEmbedded:
	case CatalogSourceFile:
		if a.CatalogPath == "" {
			return fmt.Errorf("catalogPath is required when catalogSource is %q", CatalogSourceFile)
		}
	case CatalogSourceVault:
		if !c.Vault.Enabled || c.Vault.Secrets.Catalog == "" {
			return fmt.Errorf("vault must be enabled with secrets.catalog set when catalogSource is %q", CatalogSourceVault)
		}
		if _, err := catalog.ParseFormat(a.CatalogFormat); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid catalogSource: %s (must be 'embedded', 'file', or 'vault')", a.CatalogSource)
	}

	if _, err := analyzer.ParseBoundaryStrategy(a.Segmenter); err != nil {
		return err
	}
	if a.MinTextLength < 0 {
		return fmt.Errorf("minTextLength must not be negative")
	}
	if a.ReportVersion < 1 {
		return fmt.Errorf("reportVersion must be at least 1")
	}
	return nil
}

// SegmenterOptions translates the analyzer section into segmenter options
func (c *Config) SegmenterOptions() []analyzer.SegmenterOption {
	strategy, err := analyzer.ParseBoundaryStrategy(c.Analyzer.Segmenter)
	if err != nil {
		strategy = analyzer.BoundaryUnicode
	}
	return []analyzer.SegmenterOption{analyzer.WithBoundaryStrategy(strategy)}
}
