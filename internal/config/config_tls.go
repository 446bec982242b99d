package config

import "fmt"

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	// Material held in Vault is only present after ApplyVaultSecrets runs
	fromVault := c.Vault.Enabled && c.Vault.Secrets.TLSCerts != ""
	if err := validateTLSMode(tls, fromVault); err != nil {
		return err
	}
	if tls.Mode == "disabled" {
		return nil
	}
	if tls.AutoReload.VaultWatcher.Enabled && c.Vault.Secrets.TLSCerts == "" {
		return fmt.Errorf("vault watcher requires vault.secrets.tlsCerts to be set")
	}
	return validateTLSVersion(tls)
}

// validateTLSMode validates the TLS mode and the material it needs
func validateTLSMode(tls TLSConfig, fromVault bool) error {
	switch tls.Mode {
	case "disabled":
		return nil
	case "server":
		if fromVault {
			return nil
		}
		if err := validateCertAndKeyRequired(tls, "server mode"); err != nil {
			return err
		}
		return validateSingleSources(tls)
	case "mutual":
		if fromVault {
			return validateClientAuthPolicy(tls.ClientAuthPolicy)
		}
		if err := validateCertAndKeyRequired(tls, "mutual mode"); err != nil {
			return err
		}
		if tls.CAFile == "" && tls.CAContent == "" {
			return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
		}
		if err := validateSingleSources(tls); err != nil {
			return err
		}
		return validateClientAuthPolicy(tls.ClientAuthPolicy)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}
}

// validateCertAndKeyRequired checks that both certificate and key are provided
func validateCertAndKeyRequired(tls TLSConfig, mode string) error {
	if (tls.CertFile == "" && tls.CertContent == "") || (tls.KeyFile == "" && tls.KeyContent == "") {
		return fmt.Errorf("TLS certificate and key are required for %s (provide either files or content)", mode)
	}
	return nil
}

// validateSingleSources rejects material configured both as a file and inline
func validateSingleSources(tls TLSConfig) error {
	pairs := []struct {
		name          string
		file, content string
	}{
		{"cert", tls.CertFile, tls.CertContent},
		{"key", tls.KeyFile, tls.KeyContent},
		{"ca", tls.CAFile, tls.CAContent},
	}
	for _, p := range pairs {
		if p.file != "" && p.content != "" {
			return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", p.name, p.name)
		}
	}
	return nil
}

// validateClientAuthPolicy validates the client authentication policy
func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(tls TLSConfig) error {
	switch tls.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
}
