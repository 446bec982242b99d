package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	if err := s.setupCertificateManager(); err != nil {
		return err
	}

	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	httpServer.TLSConfig = tlsConfig
	return nil
}

// setupCertificateManager loads the certificates and starts any watchers
func (s *Server) setupCertificateManager() error {
	var vaultClient VaultClientInterface
	secretPath := ""
	if s.VaultClient != nil {
		vaultClient = s.VaultClient
		secretPath = s.AppConfig.Vault.Secrets.TLSCerts
	}

	certManager := NewCertificateManager(s.TLSConfig, vaultClient, secretPath, s.om.GetMetrics(), s.Logger)
	if err := certManager.Start(); err != nil {
		return fmt.Errorf("failed to start certificate manager: %w", err)
	}
	s.CertificateManager = certManager
	return nil
}

// buildTLSConfig creates the TLS configuration served by the listener
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:     tlsMinVersion(s.TLSConfig.MinVersion),
		GetCertificate: s.CertificateManager.GetServerCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if s.TLSConfig.Mode == "mutual" {
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
		tlsConfig.ClientCAs = s.CertificateManager.GetCACertPool()
		if tlsConfig.ClientCAs == nil {
			return nil, fmt.Errorf("no CA certificate pool available for mutual TLS")
		}
		tlsConfig.GetConfigForClient = s.CertificateManager.ConfigForClient(tlsConfig)
	}

	return tlsConfig, nil
}

// tlsMinVersion maps the configured minimum version, defaulting to TLS 1.2
func tlsMinVersion(version string) uint16 {
	if version == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// clientAuthPolicy returns the client authentication policy for mutual TLS
func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
