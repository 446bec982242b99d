package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"jdroaster/internal/config"
	"jdroaster/internal/errors"
	"jdroaster/internal/observability"
)

// Certificate reload sources, used as the metric label
const (
	reloadSourceInitial = "initial"
	reloadSourceFile    = "file"
	reloadSourceVault   = "vault"
)

// CertificateManager holds the served certificate and the client CA pool
// and swaps them in place when a watcher reports new material
type CertificateManager struct {
	mu sync.RWMutex

	serverCert       *tls.Certificate
	caCertPool       *x509.CertPool
	serverCertExpiry time.Time

	fileWatcher  *CertWatcher
	vaultWatcher *VaultWatcher

	config          config.TLSConfig
	vaultClient     VaultClientInterface
	vaultSecretPath string

	reloadCallbacks []ReloadCallback
	metrics         *observability.Metrics
	logger          *errors.Logger
	stopExpiry      chan struct{}
	stopOnce        sync.Once

	reloadCount        int64
	reloadSuccessCount int64
	reloadFailureCount int64
	lastReloadTime     time.Time
	lastReloadSuccess  bool
	lastReloadError    string
}

// ReloadCallback is called after every reload attempt
type ReloadCallback func(success bool, err error)

// CertificateMetrics holds counters about certificate reloads
type CertificateMetrics struct {
	ReloadCount        int64     `json:"reload_count"`
	ReloadSuccessCount int64     `json:"reload_success_count"`
	ReloadFailureCount int64     `json:"reload_failure_count"`
	LastReloadTime     time.Time `json:"last_reload_time"`
	LastReloadSuccess  bool      `json:"last_reload_success"`
	LastReloadError    string    `json:"last_reload_error,omitempty"`
}

// NewCertificateManager creates a certificate manager. vaultClient may be
// nil; the Vault watcher is only started when it is set together with
// vaultSecretPath.
func NewCertificateManager(tlsConfig config.TLSConfig, vaultClient VaultClientInterface, vaultSecretPath string, metrics *observability.Metrics, logger *errors.Logger) *CertificateManager {
	return &CertificateManager{
		config:          tlsConfig,
		vaultClient:     vaultClient,
		vaultSecretPath: vaultSecretPath,
		metrics:         metrics,
		logger:          logger,
		stopExpiry:      make(chan struct{}),
	}
}

// Start loads the initial material and starts the configured watchers
func (cm *CertificateManager) Start() error {
	if err := cm.loadCertificates(reloadSourceInitial); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}

	cm.startExpiryMonitoring(time.Minute)

	if !cm.config.AutoReload.Enabled {
		return nil
	}
	if err := cm.startFileWatcher(); err != nil {
		return err
	}
	return cm.startVaultWatcher()
}

// startFileWatcher watches certificate files when material comes from disk
func (cm *CertificateManager) startFileWatcher() error {
	if !cm.config.AutoReload.FileWatcher.Enabled {
		return nil
	}
	if cm.config.CertFile == "" && cm.config.KeyFile == "" && cm.config.CAFile == "" {
		return nil
	}

	watcher := NewCertWatcher(
		cm.config.CertFile,
		cm.config.KeyFile,
		cm.config.CAFile,
		cm.config.AutoReload.FileWatcher.DebounceDelay,
		func() { cm.triggerReload(reloadSourceFile) },
		cm.logger,
	)
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	cm.fileWatcher = watcher
	return nil
}

// startVaultWatcher polls the TLS secret when material comes from Vault
func (cm *CertificateManager) startVaultWatcher() error {
	if !cm.config.AutoReload.VaultWatcher.Enabled {
		return nil
	}
	if cm.vaultClient == nil || cm.vaultSecretPath == "" {
		cm.logger.Warn("Vault watcher enabled but no Vault client or secret path is available")
		return nil
	}

	vw := NewVaultWatcher(
		cm.vaultClient,
		cm.vaultSecretPath,
		cm.config.AutoReload.VaultWatcher.PollInterval,
		cm.applyVaultData,
		cm.logger,
	)
	if err := vw.Start(); err != nil {
		return fmt.Errorf("failed to start Vault watcher: %w", err)
	}
	cm.vaultWatcher = vw
	return nil
}

// applyVaultData swaps in material fetched by the Vault watcher
func (cm *CertificateManager) applyVaultData(data *CertificateData, err error) {
	if err != nil {
		cm.handleReloadError(reloadSourceVault, err)
		return
	}

	cm.mu.Lock()
	if data.CertContent != "" {
		cm.config.CertContent = data.CertContent
		cm.config.CertFile = ""
	}
	if data.KeyContent != "" {
		cm.config.KeyContent = data.KeyContent
		cm.config.KeyFile = ""
	}
	if data.CAContent != "" {
		cm.config.CAContent = data.CAContent
		cm.config.CAFile = ""
	}
	cm.mu.Unlock()

	cm.triggerReload(reloadSourceVault)
}

// Stop stops the watchers and expiry monitoring
func (cm *CertificateManager) Stop() error {
	cm.stopOnce.Do(func() { close(cm.stopExpiry) })

	var firstErr error
	if cm.fileWatcher != nil {
		if err := cm.fileWatcher.Stop(); err != nil {
			cm.logger.LogError(err, "Failed to stop file watcher")
			firstErr = err
		}
	}
	if cm.vaultWatcher != nil {
		if err := cm.vaultWatcher.Stop(); err != nil {
			cm.logger.LogError(err, "Failed to stop Vault watcher")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	cm.logger.Info("Certificate manager stopped")
	return firstErr
}

// GetServerCertificate returns the current server certificate for TLS handshakes
func (cm *CertificateManager) GetServerCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	if time.Now().After(cm.serverCertExpiry) {
		cm.logger.Warn("Serving an expired certificate",
			"expiry", cm.serverCertExpiry,
			"server_name", hello.ServerName)
	}
	return cm.serverCert, nil
}

// GetCACertPool returns the current client CA pool
func (cm *CertificateManager) GetCACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// ConfigForClient returns a per-handshake config that verifies client
// certificates against the current CA pool, so CA rotation applies to new
// connections without a restart
func (cm *CertificateManager) ConfigForClient(base *tls.Config) func(*tls.ClientHelloInfo) (*tls.Config, error) {
	return func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		cfg.ClientCAs = cm.GetCACertPool()
		return cfg, nil
	}
}

// ReloadCertificates reloads the configured material immediately
func (cm *CertificateManager) ReloadCertificates() error {
	return cm.loadCertificates(reloadSourceFile)
}

// AddReloadCallback adds a callback to be called when certificates are reloaded
func (cm *CertificateManager) AddReloadCallback(callback ReloadCallback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.reloadCallbacks = append(cm.reloadCallbacks, callback)
}

// CheckExpiry returns the time until the served certificate expires
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCertExpiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(cm.serverCertExpiry), nil
}

// GetMetrics returns reload counters
func (cm *CertificateManager) GetMetrics() CertificateMetrics {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return CertificateMetrics{
		ReloadCount:        cm.reloadCount,
		ReloadSuccessCount: cm.reloadSuccessCount,
		ReloadFailureCount: cm.reloadFailureCount,
		LastReloadTime:     cm.lastReloadTime,
		LastReloadSuccess:  cm.lastReloadSuccess,
		LastReloadError:    cm.lastReloadError,
	}
}

// WatcherStatus describes the auto-reload watchers for the health endpoint
func (cm *CertificateManager) WatcherStatus() map[string]any {
	status := map[string]any{"enabled": cm.config.AutoReload.Enabled}
	if cm.fileWatcher != nil {
		status["file_watcher_running"] = cm.fileWatcher.IsRunning()
		status["watched_files"] = cm.fileWatcher.GetWatchedFiles()
	}
	if cm.vaultWatcher != nil {
		status["vault_watcher"] = cm.vaultWatcher.Status()
	}
	return status
}

// loadCertificates parses the configured material and swaps it in only
// when everything parsed
func (cm *CertificateManager) loadCertificates(source string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cert, expiry, err := loadServerCertificate(cm.config)
	if err != nil {
		return err
	}

	var pool *x509.CertPool
	if cm.config.Mode == "mutual" {
		if pool, err = loadCACertPool(cm.config); err != nil {
			return err
		}
	}

	cm.serverCert = cert
	cm.serverCertExpiry = expiry
	cm.caCertPool = pool
	cm.lastReloadTime = time.Now()

	cm.reloadCount++
	cm.reloadSuccessCount++
	cm.lastReloadSuccess = true
	cm.lastReloadError = ""

	cm.metrics.RecordCertReload(context.Background(), source, true)
	cm.metrics.RecordCertExpiry(context.Background(), expiry)
	cm.callReloadCallbacks(true, nil)

	cm.logger.Info("Certificates loaded",
		"source", source,
		"server_cert_expiry", expiry)

	return nil
}

// loadServerCertificate loads the key pair from content or files and
// extracts the leaf expiry
func loadServerCertificate(cfg config.TLSConfig) (*tls.Certificate, time.Time, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return nil, time.Time{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load server certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
	}
	cert.Leaf = leaf

	return &cert, leaf.NotAfter, nil
}

// loadCACertPool loads the CA bundle used to verify client certificates
func loadCACertPool(cfg config.TLSConfig) (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case cfg.CAContent != "":
		caCert = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

// callReloadCallbacks runs every callback; the caller holds cm.mu
func (cm *CertificateManager) callReloadCallbacks(success bool, err error) {
	for _, callback := range cm.reloadCallbacks {
		go callback(success, err)
	}
}

// triggerReload is called by watchers; the previous material stays in
// service when the new one fails to load
func (cm *CertificateManager) triggerReload(source string) {
	cm.logger.Info("Certificate reload triggered", "source", source)

	if err := cm.loadCertificates(source); err != nil {
		cm.handleReloadError(source, err)
	}
}

// handleReloadError records a failed reload
func (cm *CertificateManager) handleReloadError(source string, err error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.reloadCount++
	cm.reloadFailureCount++
	cm.lastReloadSuccess = false
	cm.lastReloadError = err.Error()

	cm.metrics.RecordCertReload(context.Background(), source, false)
	cm.logger.LogError(err, "Failed to reload certificates", "source", source)
	cm.callReloadCallbacks(false, err)
}

// startExpiryMonitoring refreshes the expiry gauge every interval
func (cm *CertificateManager) startExpiryMonitoring(interval time.Duration) {
	if cm.metrics == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.mu.RLock()
				expiry := cm.serverCertExpiry
				cm.mu.RUnlock()
				cm.metrics.RecordCertExpiry(context.Background(), expiry)
			case <-cm.stopExpiry:
				return
			}
		}
	}()
}
