package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"jdroaster/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets        VaultSecrets         `mapstructure:"secrets"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// VaultSecrets defines where to find secrets in Vault (KVv2 read paths)
type VaultSecrets struct {
	Catalog    string `mapstructure:"catalog"`    // Path to the serialized rule catalog
	CatalogKey string `mapstructure:"catalogKey"` // Key holding the catalog inside the secret
	TLSCerts   string `mapstructure:"tlsCerts"`   // Path to TLS certificates (cert, key, ca)
}

// logicalReader is the subset of the Vault logical API used here
type logicalReader interface {
	Read(path string) (*api.Secret, error)
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	logical logicalReader
	config  VaultConfig
	breaker *vaultBreaker
	logger  *errors.Logger
}

// NewVaultClient creates a new Vault client from configuration. It returns
// nil without error when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	logger.Debug("Initializing Vault client",
		"address", config.Address,
		"namespace", config.Namespace,
		"token_file", config.TokenFile,
		"has_token", config.Token != "")

	client, err := createVaultAPIClient(config, logger)
	if err != nil {
		return nil, err
	}

	token, err := resolveVaultToken(config, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	if err := testVaultConnection(client, config.Address, logger); err != nil {
		return nil, err
	}

	return &VaultClient{
		logical: client.Logical(),
		config:  config,
		breaker: newVaultBreaker(config.CircuitBreaker, logger),
		logger:  logger,
	}, nil
}

// createVaultAPIClient creates and configures the Vault API client
func createVaultAPIClient(config VaultConfig, logger *errors.Logger) (*api.Client, error) {
	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		logger.LogError(err, "Failed to create Vault client")
		return nil, errors.NewNetworkError(errors.ErrCodeVaultFailed, "failed to create vault client", err)
	}

	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	return client, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig, logger *errors.Logger) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		logger.Debug("Reading Vault token from file", "file", config.TokenFile)
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to read vault token file", err).
				WithContext("file", config.TokenFile)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "vault token is required when vault is enabled", nil)
	}

	return token, nil
}

// testVaultConnection tests the connection to Vault
func testVaultConnection(client *api.Client, address string, logger *errors.Logger) error {
	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", address)
		return errors.NewNetworkError(errors.ErrCodeVaultFailed, "failed to connect to vault", err).
			WithContext("address", address)
	}

	logger.Info("Successfully connected to Vault",
		"address", address,
		"version", health.Version,
		"sealed", health.Sealed,
		"cluster_name", health.ClusterName)

	return nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.breaker.Execute(func() (*api.Secret, error) {
		return vc.readSecretFromVault(path)
	})
	if err != nil {
		return nil, err
	}

	data, err := extractSecretData(secret, path)
	if err != nil {
		return nil, err
	}

	version, err := extractSecretVersion(secret, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// readSecretFromVault reads the raw secret from Vault
func (vc *VaultClient) readSecretFromVault(path string) (*api.Secret, error) {
	vc.logger.Debug("Reading secret from Vault", "path", path)

	secret, err := vc.logical.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return secret, nil
}

// extractSecretData extracts the data field from a KVv2 secret
func extractSecretData(secret *api.Secret, path string) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

// extractSecretVersion extracts and parses the version from a KVv2 secret
func extractSecretVersion(secret *api.Secret, path string) (int64, error) {
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}

	versionRaw, ok := metadata["version"]
	if !ok {
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}

	return parseVersionValue(versionRaw, path)
}

// parseVersionValue parses version value from the types the JSON decoder yields
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		// json.Number and friends
		if s, ok := v.(fmt.Stringer); ok {
			return parseVersionValue(s.String(), path)
		}
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	vc.logger.Debug("String secret retrieved from Vault",
		"path", path,
		"key", key,
		"length", len(strValue))

	return strValue, nil
}

// BreakerStats reports the state of the Vault circuit breaker
func (vc *VaultClient) BreakerStats() map[string]any {
	if vc == nil {
		return map[string]any{"enabled": false}
	}
	return vc.breaker.Stats()
}

// ApplyVaultSecrets copies TLS material from Vault into the server config
func ApplyVaultSecrets(config *Config, client *VaultClient, logger *errors.Logger) error {
	if client == nil || config.Vault.Secrets.TLSCerts == "" {
		logger.Debug("No TLS secrets to load from Vault")
		return nil
	}

	path := config.Vault.Secrets.TLSCerts
	tlsData, err := client.GetSecretV2(path)
	if err != nil {
		logger.LogError(err, "Failed to load TLS certificates from Vault", "path", path)
		return errors.NewNetworkError(errors.ErrCodeVaultFailed, "failed to load TLS certificates from vault", err).
			WithContext("path", path)
	}

	count := loadTLSCertificateContent(&config.Server.TLS, tlsData)
	logger.Info("TLS certificates loaded from Vault", "certificates_loaded", count, "version", tlsData.Version)

	return nil
}

// loadTLSCertificateContent copies cert, key and ca fields into tls
func loadTLSCertificateContent(tls *TLSConfig, secret *VaultSecret) int {
	count := 0
	for key, target := range map[string]*string{
		"cert": &tls.CertContent,
		"key":  &tls.KeyContent,
		"ca":   &tls.CAContent,
	} {
		if content, ok := secret.Data[key].(string); ok && content != "" {
			*target = content
			count++
		}
	}
	if count > 0 {
		// Inline content replaces any file configuration
		tls.CertFile, tls.KeyFile = "", ""
		if tls.CAContent != "" {
			tls.CAFile = ""
		}
	}
	return count
}
