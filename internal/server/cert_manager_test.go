package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"jdroaster/internal/config"
	"jdroaster/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPEM struct {
	cert, key []byte
	notAfter  time.Time
}

// generateCert creates a self-signed certificate valid for the given duration
func generateCert(t *testing.T, cn string, validFor time.Duration) testPEM {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	notAfter := time.Now().Add(validFor).Truncate(time.Second)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return testPEM{
		cert:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		key:      pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
		notAfter: notAfter,
	}
}

func writePEM(t *testing.T, dir string, p testPEM) (certFile, keyFile string) {
	t.Helper()
	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, p.cert, 0o600))
	require.NoError(t, os.WriteFile(keyFile, p.key, 0o600))
	return certFile, keyFile
}

func TestCertificateManagerLoadsContent(t *testing.T) {
	p := generateCert(t, "content", 48*time.Hour)
	cm := NewCertificateManager(config.TLSConfig{
		Mode:        "server",
		CertContent: string(p.cert),
		KeyContent:  string(p.key),
	}, nil, "", nil, errors.Discard())
	require.NoError(t, cm.Start())
	defer func() { _ = cm.Stop() }()

	cert, err := cm.GetServerCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, "content", cert.Leaf.Subject.CommonName)

	ttl, err := cm.CheckExpiry()
	require.NoError(t, err)
	assert.InDelta(t, (48 * time.Hour).Seconds(), ttl.Seconds(), 5)

	metrics := cm.GetMetrics()
	assert.Equal(t, int64(1), metrics.ReloadSuccessCount)
	assert.True(t, metrics.LastReloadSuccess)
}

func TestCertificateManagerMutualNeedsCA(t *testing.T) {
	p := generateCert(t, "server", time.Hour)
	cm := NewCertificateManager(config.TLSConfig{
		Mode:        "mutual",
		CertContent: string(p.cert),
		KeyContent:  string(p.key),
	}, nil, "", nil, errors.Discard())
	assert.Error(t, cm.Start())

	cm = NewCertificateManager(config.TLSConfig{
		Mode:        "mutual",
		CertContent: string(p.cert),
		KeyContent:  string(p.key),
		CAContent:   string(p.cert),
	}, nil, "", nil, errors.Discard())
	require.NoError(t, cm.Start())
	defer func() { _ = cm.Stop() }()
	assert.NotNil(t, cm.GetCACertPool())
}

func TestCertificateManagerKeepsOldCertOnFailedReload(t *testing.T) {
	dir := t.TempDir()
	p := generateCert(t, "first", time.Hour)
	certFile, keyFile := writePEM(t, dir, p)

	cm := NewCertificateManager(config.TLSConfig{Mode: "server", CertFile: certFile, KeyFile: keyFile},
		nil, "", nil, errors.Discard())
	require.NoError(t, cm.Start())
	defer func() { _ = cm.Stop() }()

	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))
	cm.triggerReload(reloadSourceFile)

	cert, err := cm.GetServerCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Equal(t, "first", cert.Leaf.Subject.CommonName)

	metrics := cm.GetMetrics()
	assert.Equal(t, int64(1), metrics.ReloadFailureCount)
	assert.False(t, metrics.LastReloadSuccess)
	assert.NotEmpty(t, metrics.LastReloadError)
}

func TestCertificateManagerAppliesVaultData(t *testing.T) {
	first := generateCert(t, "first", time.Hour)
	second := generateCert(t, "second", 2*time.Hour)

	cm := NewCertificateManager(config.TLSConfig{
		Mode:        "server",
		CertContent: string(first.cert),
		KeyContent:  string(first.key),
	}, nil, "", nil, errors.Discard())
	require.NoError(t, cm.Start())
	defer func() { _ = cm.Stop() }()

	var calls atomic.Int32
	done := make(chan bool, 1)
	cm.AddReloadCallback(func(success bool, err error) {
		calls.Add(1)
		done <- success
	})

	cm.applyVaultData(&CertificateData{CertContent: string(second.cert), KeyContent: string(second.key)}, nil)

	select {
	case success := <-done:
		assert.True(t, success)
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback was not called")
	}

	cert, err := cm.GetServerCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Equal(t, "second", cert.Leaf.Subject.CommonName)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCertificateHealthThresholds(t *testing.T) {
	tests := []struct {
		name        string
		validFor    time.Duration
		wantStatus  string
		wantHealthy bool
	}{
		{"ok", 30 * 24 * time.Hour, "ok", true},
		{"warning", 3 * 24 * time.Hour, "warning", true},
		{"critical", 2 * time.Hour, "critical", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := generateCert(t, tt.name, tt.validFor)
			cm := NewCertificateManager(config.TLSConfig{
				Mode:        "server",
				CertContent: string(p.cert),
				KeyContent:  string(p.key),
			}, nil, "", nil, errors.Discard())
			require.NoError(t, cm.Start())
			defer func() { _ = cm.Stop() }()

			s := &Server{CertificateManager: cm}
			status := s.checkCertificateHealth()
			assert.Equal(t, tt.wantStatus, status["status"])
			assert.Equal(t, tt.wantHealthy, status["healthy"])
		})
	}
}

func TestBuildTLSConfig(t *testing.T) {
	p := generateCert(t, "server", time.Hour)
	s := &Server{
		AppConfig: &config.Config{},
		TLSConfig: config.TLSConfig{
			Mode:             "mutual",
			CertContent:      string(p.cert),
			KeyContent:       string(p.key),
			CAContent:        string(p.cert),
			MinVersion:       "1.3",
			ClientAuthPolicy: "verify",
		},
		Logger: errors.Discard(),
	}
	require.NoError(t, s.setupCertificateManager())
	defer func() { _ = s.CertificateManager.Stop() }()

	tlsConfig, err := s.buildTLSConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), tlsConfig.MinVersion)
	assert.Equal(t, tls.VerifyClientCertIfGiven, tlsConfig.ClientAuth)
	require.NotNil(t, tlsConfig.GetConfigForClient)

	perConn, err := tlsConfig.GetConfigForClient(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Same(t, s.CertificateManager.GetCACertPool(), perConn.ClientCAs)
	assert.Nil(t, perConn.GetConfigForClient)
}
