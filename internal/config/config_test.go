package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jdroaster/internal/analyzer"
	"jdroaster/internal/catalog"
	"jdroaster/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at an empty directory so no stray config.yaml is found
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "json", cfg.App.DefaultFormat)
	assert.Equal(t, CatalogSourceEmbedded, cfg.Analyzer.CatalogSource)
	assert.Equal(t, "unicode", cfg.Analyzer.Segmenter)
	assert.Equal(t, 40, cfg.Analyzer.MinTextLength)
	assert.Equal(t, 1, cfg.Analyzer.ReportVersion)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(2*1024*1024), cfg.Server.MaxRequestSize)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.False(t, cfg.Vault.Enabled)
	assert.Equal(t, "catalog", cfg.Vault.Secrets.CatalogKey)
	assert.Equal(t, "jdroaster", cfg.Observability.ServiceName)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("JDROASTER_SERVER_PORT", "9999")
	t.Setenv("JDROASTER_ANALYZER_SEGMENTER", "simple")
	t.Setenv("JDROASTER_APP_LOGLEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "simple", cfg.Analyzer.Segmenter)
	assert.True(t, cfg.Observability.Console.Enabled, "debug enables console exporters")
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	content := `
app:
  defaultFormat: markdown
analyzer:
  catalogSource: FILE
  catalogPath: /etc/jdroaster/rules.yaml
server:
  rateLimit:
    requestsPerMin: 120
`
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("JDROASTER_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "markdown", cfg.App.DefaultFormat)
	assert.Equal(t, CatalogSourceFile, cfg.Analyzer.CatalogSource)
	assert.Equal(t, "/etc/jdroaster/rules.yaml", cfg.Analyzer.CatalogPath)
	assert.Equal(t, 120, cfg.Server.RateLimit.RequestsPerMin)
	assert.Equal(t, 10, cfg.Server.RateLimit.BurstCapacity)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("JDROASTER_ANALYZER_SEGMENTER", "icu")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "invalid configuration")
}

func validConfig() *Config {
	return &Config{
		App: AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text", "markdown"}},
		Analyzer: AnalyzerConfig{
			CatalogSource: CatalogSourceEmbedded,
			CatalogFormat: "yaml",
			Segmenter:     "unicode",
			MinTextLength: 40,
			ReportVersion: 1,
		},
		Server: ServerConfig{
			Port:           "8080",
			MaxRequestSize: 1024,
			TLS:            TLSConfig{Mode: "disabled"},
			RateLimit:      RateLimitConfig{Enabled: true, RequestsPerMin: 60, BurstCapacity: 10},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"bad default format", func(c *Config) { c.App.DefaultFormat = "pdf" }, "invalid default format"},
		{"file source needs path", func(c *Config) { c.Analyzer.CatalogSource = CatalogSourceFile }, "catalogPath is required"},
		{"vault source needs vault", func(c *Config) { c.Analyzer.CatalogSource = CatalogSourceVault }, "vault must be enabled"},
		{"vault source bad format", func(c *Config) {
			c.Analyzer.CatalogSource = CatalogSourceVault
			c.Vault.Enabled = true
			c.Vault.Secrets.Catalog = "secret/data/catalog"
			c.Analyzer.CatalogFormat = "xml"
		}, "unsupported catalog format"},
		{"unknown source", func(c *Config) { c.Analyzer.CatalogSource = "s3" }, "invalid catalogSource"},
		{"bad segmenter", func(c *Config) { c.Analyzer.Segmenter = "icu" }, "boundary strategy"},
		{"negative min length", func(c *Config) { c.Analyzer.MinTextLength = -1 }, "minTextLength"},
		{"zero report version", func(c *Config) { c.Analyzer.ReportVersion = 0 }, "reportVersion"},
		{"zero request size", func(c *Config) { c.Server.MaxRequestSize = 0 }, "maxRequestSize"},
		{"rate limit without rate", func(c *Config) { c.Server.RateLimit.RequestsPerMin = 0 }, "requestsPerMin"},
		{"rate limit disabled ignores rate", func(c *Config) {
			c.Server.RateLimit = RateLimitConfig{}
		}, ""},
		{"tls error surfaces", func(c *Config) { c.Server.TLS.Mode = "server" }, "TLS configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}

func TestSegmenterOptions(t *testing.T) {
	cfg := validConfig()
	cfg.Analyzer.Segmenter = "simple"

	seg := analyzer.NewSegmenter(cfg.SegmenterOptions()...)
	assert.Equal(t, analyzer.BoundarySimple, seg.Strategy())
}

func TestApplyFallbacks(t *testing.T) {
	cfg := &Config{}
	cfg.Server.TLS.Mode = "mutual"
	cfg.Observability.ServiceName = "jdroaster"
	cfg.applyFallbacks()

	assert.Equal(t, CatalogSourceEmbedded, cfg.Analyzer.CatalogSource)
	assert.Equal(t, "require", cfg.Server.TLS.ClientAuthPolicy)
	assert.Equal(t, "1.2", cfg.Server.TLS.MinVersion)
	assert.Contains(t, cfg.Observability.ServiceInstance, "jdroaster-")
}

func TestMaskIfSensitive(t *testing.T) {
	assert.Equal(t, "***MASKED***", maskIfSensitive("JDROASTER_VAULT_TOKEN", "hvs.abc"))
	assert.Equal(t, "8080", maskIfSensitive("JDROASTER_SERVER_PORT", "8080"))
}

type stubSecrets map[string]string

func (s stubSecrets) GetStringSecret(path, key string) (string, error) {
	if v, ok := s[path+"#"+key]; ok {
		return v, nil
	}
	return "", os.ErrNotExist
}

const tinyCatalog = `{"version":"t1","rules":[{"id":"r1","kind":"insight","type":"t","title":"R1","severity":"info","priority":1,"mode":"phrase","match":{"phrases":["rockstar"]}}]}`

func TestLoadCatalog(t *testing.T) {
	logger := errors.Discard()

	t.Run("embedded default", func(t *testing.T) {
		cat, err := LoadCatalog(validConfig(), "", nil, logger)
		require.NoError(t, err)
		assert.Equal(t, catalog.DefaultSource, cat.Source())
	})

	t.Run("file source", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.json")
		require.NoError(t, os.WriteFile(path, []byte(tinyCatalog), 0o600))

		cfg := validConfig()
		cfg.Analyzer.CatalogSource = CatalogSourceFile
		cfg.Analyzer.CatalogPath = path

		cat, err := LoadCatalog(cfg, "", nil, logger)
		require.NoError(t, err)
		assert.Equal(t, "t1", cat.Version())
	})

	t.Run("override wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "override.json")
		require.NoError(t, os.WriteFile(path, []byte(tinyCatalog), 0o600))

		cat, err := LoadCatalog(validConfig(), path, nil, logger)
		require.NoError(t, err)
		assert.Equal(t, 1, cat.Len())
	})

	t.Run("vault source", func(t *testing.T) {
		cfg := validConfig()
		cfg.Analyzer.CatalogSource = CatalogSourceVault
		cfg.Analyzer.CatalogFormat = "json"
		cfg.Vault.Secrets.Catalog = "secret/data/jdroaster/catalog"
		cfg.Vault.Secrets.CatalogKey = "catalog"

		secrets := stubSecrets{"secret/data/jdroaster/catalog#catalog": tinyCatalog}
		cat, err := LoadCatalog(cfg, "", secrets, logger)
		require.NoError(t, err)
		assert.Equal(t, "vault:secret/data/jdroaster/catalog#catalog", cat.Source())
	})

	t.Run("vault source without client", func(t *testing.T) {
		cfg := validConfig()
		cfg.Analyzer.CatalogSource = CatalogSourceVault

		_, err := LoadCatalog(cfg, "", nil, logger)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(validConfig(), filepath.Join(t.TempDir(), "nope.yaml"), nil, logger)
		assert.True(t, errors.IsType(err, errors.ErrorTypeCatalog))
	})
}
