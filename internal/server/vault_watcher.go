package server

import (
	"fmt"
	"sync"
	"time"

	"jdroaster/internal/config"
	"jdroaster/internal/errors"
)

// VaultClientInterface is the part of the Vault client the watcher uses
type VaultClientInterface interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// CertificateData holds certificate data fetched from Vault
type CertificateData struct {
	CertContent string
	KeyContent  string
	CAContent   string
}

// VaultReloadCallback is called when new certificate data is available from Vault
type VaultReloadCallback func(data *CertificateData, err error)

// VaultWatcher polls a KVv2 secret holding cert, key and ca and reports
// each new version
type VaultWatcher struct {
	mu sync.RWMutex

	client         VaultClientInterface
	secretPath     string
	pollInterval   time.Duration
	reloadCallback VaultReloadCallback
	logger         *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastError   string
	lastPoll    time.Time
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client VaultClientInterface, secretPath string, pollInterval time.Duration, reloadCallback VaultReloadCallback, logger *errors.Logger) *VaultWatcher {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	return &VaultWatcher{
		client:         client,
		secretPath:     secretPath,
		pollInterval:   pollInterval,
		reloadCallback: reloadCallback,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start records the current secret version and begins polling. The
// version already applied at startup does not trigger a reload.
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}

	if secret, err := vw.client.GetSecretV2(vw.secretPath); err == nil && secret != nil {
		vw.lastVersion = secret.Version
	} else if err != nil {
		vw.logger.Warn("Could not read initial TLS secret version", "path", vw.secretPath, "error", err)
	}

	vw.running = true
	go vw.pollLoop()

	vw.logger.Info("Vault watcher started",
		"secret_path", vw.secretPath,
		"poll_interval", vw.pollInterval,
		"version", vw.lastVersion)
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if !vw.running {
		return nil
	}
	close(vw.stopChan)
	vw.running = false

	vw.logger.Info("Vault watcher stopped")
	return nil
}

// pollLoop polls Vault until stopped
func (vw *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			vw.poll()
		case <-vw.stopChan:
			return
		}
	}
}

// poll reads the secret once and hands a newer version to the callback
func (vw *VaultWatcher) poll() {
	data, changed, err := vw.checkForUpdates()
	if err != nil {
		vw.logger.LogError(err, "Failed to check Vault for updates", "path", vw.secretPath)
		return
	}
	if !changed {
		return
	}

	if data.CertContent == "" || data.KeyContent == "" {
		vw.reloadCallback(nil, fmt.Errorf("secret %s is missing cert or key", vw.secretPath))
		return
	}

	vw.logger.Info("Vault secret changed, triggering certificate reload", "version", vw.lastVersionSnapshot())
	vw.reloadCallback(data, nil)
}

// checkForUpdates reads the secret and returns its material when its
// version is newer than the last one seen
func (vw *VaultWatcher) checkForUpdates() (*CertificateData, bool, error) {
	secret, err := vw.client.GetSecretV2(vw.secretPath)

	vw.mu.Lock()
	defer vw.mu.Unlock()
	vw.lastPoll = time.Now()

	if err != nil {
		vw.lastError = err.Error()
		return nil, false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		vw.lastError = "secret not found"
		return nil, false, fmt.Errorf("secret not found at %s", vw.secretPath)
	}
	vw.lastError = ""

	if secret.Version <= vw.lastVersion {
		return nil, false, nil
	}
	vw.lastVersion = secret.Version

	return certificateDataFromSecret(secret), true, nil
}

// certificateDataFromSecret reads the cert, key and ca keys
func certificateDataFromSecret(secret *config.VaultSecret) *CertificateData {
	data := &CertificateData{}
	if certContent, ok := secret.Data["cert"].(string); ok {
		data.CertContent = certContent
	}
	if keyContent, ok := secret.Data["key"].(string); ok {
		data.KeyContent = keyContent
	}
	if caContent, ok := secret.Data["ca"].(string); ok {
		data.CAContent = caContent
	}
	return data
}

func (vw *VaultWatcher) lastVersionSnapshot() int64 {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	return vw.lastVersion
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()

	status := map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
	}
	if !vw.lastPoll.IsZero() {
		status["last_poll"] = vw.lastPoll
	}
	if vw.lastError != "" {
		status["last_error"] = vw.lastError
	}
	return status
}
