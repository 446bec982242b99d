package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills values that depend on other settings
func (c *Config) applyFallbacks() {
	c.Analyzer.CatalogSource = strings.ToLower(strings.TrimSpace(c.Analyzer.CatalogSource))
	if c.Analyzer.CatalogSource == "" {
		c.Analyzer.CatalogSource = CatalogSourceEmbedded
	}
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "" {
		c.Server.TLS.Mode = "disabled"
	}

	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}

	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	// Debug runs get console exporters unless configured otherwise
	if c.App.LogLevel == "debug" && !c.Observability.Console.Enabled {
		c.Observability.Console.Enabled = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// trackedEnvVars are reported in the configuration summary when set
var trackedEnvVars = []string{
	"JDROASTER_CONFIG",
	"JDROASTER_APP_LOGLEVEL",
	"JDROASTER_ANALYZER_CATALOGSOURCE",
	"JDROASTER_ANALYZER_CATALOGPATH",
	"JDROASTER_ANALYZER_SEGMENTER",
	"JDROASTER_SERVER_HOST",
	"JDROASTER_SERVER_PORT",
	"JDROASTER_SERVER_TLS_MODE",
	"JDROASTER_VAULT_ENABLED",
	"JDROASTER_VAULT_TOKEN",
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range trackedEnvVars {
		if value := os.Getenv(envVar); value != "" {
			log.Printf("[CONFIG]   %s=%s", envVar, maskIfSensitive(envVar, value))
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Catalog Source: %s", c.Analyzer.CatalogSource)
	if c.Analyzer.CatalogPath != "" {
		log.Printf("[CONFIG] Catalog Path: %s", c.Analyzer.CatalogPath)
	}
	log.Printf("[CONFIG] Segmenter: %s", c.Analyzer.Segmenter)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Rate Limit Enabled: %t", c.Server.RateLimit.Enabled)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func maskIfSensitive(name, value string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "token") || strings.Contains(lower, "key") {
		return "***MASKED***"
	}
	return value
}
