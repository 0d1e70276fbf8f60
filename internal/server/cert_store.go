package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/observability"
)

const (
	certWarningThreshold  = 7 * 24 * time.Hour
	certCriticalThreshold = 24 * time.Hour
)

// CertificateStore holds the serving certificate and client CA pool and
// swaps them in place when the material is reloaded.
type CertificateStore struct {
	mu sync.RWMutex

	cfg      config.TLSConfig
	cert     *tls.Certificate
	caPool   *x509.CertPool
	notAfter time.Time

	reloadCount   int64
	failureCount  int64
	lastReload    time.Time
	lastReloadErr string

	metrics *observability.Metrics
	logger  *errors.Logger
}

// NewCertificateStore loads the material described by cfg.
func NewCertificateStore(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) (*CertificateStore, error) {
	cs := &CertificateStore{cfg: cfg, metrics: metrics, logger: logger}
	if err := cs.load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load TLS certificates: %w", err)
	}
	return cs, nil
}

// Reload re-reads the current files or content.
func (cs *CertificateStore) Reload() error {
	cs.mu.RLock()
	cfg := cs.cfg
	cs.mu.RUnlock()
	return cs.reloadWith(cfg)
}

// ApplyMaterial replaces the PEM content, typically with a new Vault
// version, and reloads.
func (cs *CertificateStore) ApplyMaterial(m config.TLSMaterial) error {
	cs.mu.RLock()
	cfg := cs.cfg
	cs.mu.RUnlock()

	m.ApplyTo(&cfg)
	return cs.reloadWith(cfg)
}

func (cs *CertificateStore) reloadWith(cfg config.TLSConfig) error {
	err := cs.load(cfg)

	cs.mu.Lock()
	cs.reloadCount++
	if err != nil {
		cs.failureCount++
		cs.lastReloadErr = err.Error()
	} else {
		cs.lastReloadErr = ""
	}
	cs.mu.Unlock()

	if cs.metrics != nil {
		cs.metrics.RecordReload(context.Background(), "tls", err)
	}
	if err != nil {
		if cs.logger != nil {
			cs.logger.LogError(err, "Failed to reload TLS certificates, keeping the previous ones")
		}
		return err
	}
	if cs.logger != nil {
		cs.logger.Info("TLS certificates reloaded", "not_after", cs.NotAfter())
	}
	return nil
}

// load parses everything first and only then swaps, so a bad reload
// leaves the previous material serving.
func (cs *CertificateStore) load(cfg config.TLSConfig) error {
	cert, err := loadCertificatePair(cfg)
	if err != nil {
		return err
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse server certificate: %w", err)
	}

	var pool *x509.CertPool
	if cfg.Mode == "mutual" {
		pool, err = loadCAPool(cfg)
		if err != nil {
			return err
		}
	}

	cs.mu.Lock()
	cs.cfg = cfg
	cs.cert = &cert
	cs.caPool = pool
	cs.notAfter = leaf.NotAfter
	cs.lastReload = time.Now()
	cs.mu.Unlock()

	if cs.metrics != nil {
		cs.metrics.RecordCertificateExpiry(context.Background(), leaf.NotAfter)
	}
	return nil
}

func loadCertificatePair(cfg config.TLSConfig) (tls.Certificate, error) {
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err := tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		return cert, nil
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
		return cert, nil
	default:
		return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
}

func loadCAPool(cfg config.TLSConfig) (*x509.CertPool, error) {
	var caPEM []byte
	switch {
	case cfg.CAContent != "":
		caPEM = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caPEM = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}

// GetCertificate serves the current certificate to every handshake.
func (cs *CertificateStore) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.cert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cs.cert, nil
}

// ClientCAs returns the current client CA pool, nil outside mutual mode.
func (cs *CertificateStore) ClientCAs() *x509.CertPool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.caPool
}

// Files lists the on-disk files backing the store.
func (cs *CertificateStore) Files() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cfg.Files()
}

// NotAfter is the expiry of the serving certificate.
func (cs *CertificateStore) NotAfter() time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.notAfter
}

// Status reports expiry health and reload counters.
func (cs *CertificateStore) Status() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	left := time.Until(cs.notAfter)
	status := map[string]any{
		"mode":                 cs.cfg.Mode,
		"expires_at":           cs.notAfter.UTC().Format(time.RFC3339),
		"time_to_expiry_hours": int(left.Hours()),
		"reload_count":         cs.reloadCount,
		"reload_failures":      cs.failureCount,
		"last_reload":          cs.lastReload.UTC().Format(time.RFC3339),
	}
	if cs.lastReloadErr != "" {
		status["last_reload_error"] = cs.lastReloadErr
	}

	switch {
	case left <= 0:
		status["healthy"] = false
		status["status"] = "expired"
	case left <= certCriticalThreshold:
		status["healthy"] = false
		status["status"] = "critical"
	case left <= certWarningThreshold:
		status["healthy"] = true
		status["status"] = "warning"
	default:
		status["healthy"] = true
		status["status"] = "ok"
	}
	return status
}
