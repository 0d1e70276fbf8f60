package watch

import (
	"fmt"
	"sync"
	"time"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
)

// SecretPoller polls a Vault KV v2 secret and hands every newer version to
// a callback. No lease renewal is done.
type SecretPoller struct {
	mu sync.RWMutex

	reader       config.SecretReader
	secretPath   string
	pollInterval time.Duration
	onUpdate     func(*config.VaultSecret)
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastError   string
	lastChecked time.Time
}

// NewSecretPoller creates a poller for secretPath.
func NewSecretPoller(reader config.SecretReader, secretPath string, pollInterval time.Duration, onUpdate func(*config.VaultSecret), logger *errors.Logger) *SecretPoller {
	return &SecretPoller{
		reader:       reader,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		onUpdate:     onUpdate,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start records the current version as the baseline and begins polling.
func (sp *SecretPoller) Start() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.running {
		return fmt.Errorf("secret poller for %s is already running", sp.secretPath)
	}
	if sp.pollInterval <= 0 {
		return fmt.Errorf("secret poller for %s needs a positive poll interval", sp.secretPath)
	}

	if secret, err := sp.reader.GetSecretV2(sp.secretPath); err == nil && secret != nil {
		sp.lastVersion = secret.Version
	} else if err != nil && sp.logger != nil {
		sp.logger.Warn("Could not read initial secret version", "secret_path", sp.secretPath, "error", err)
	}

	sp.running = true
	go sp.pollLoop()

	if sp.logger != nil {
		sp.logger.Info("Vault secret poller started",
			"secret_path", sp.secretPath,
			"poll_interval", sp.pollInterval,
			"version", sp.lastVersion)
	}
	return nil
}

// Stop stops polling. It is safe to call more than once.
func (sp *SecretPoller) Stop() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if !sp.running {
		return nil
	}
	close(sp.stopChan)
	sp.running = false
	if sp.logger != nil {
		sp.logger.Info("Vault secret poller stopped", "secret_path", sp.secretPath)
	}
	return nil
}

func (sp *SecretPoller) pollLoop() {
	ticker := time.NewTicker(sp.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sp.poll()
		case <-sp.stopChan:
			return
		}
	}
}

// poll reads the secret once and fires the callback on a version increase.
func (sp *SecretPoller) poll() {
	secret, err := sp.reader.GetSecretV2(sp.secretPath)

	sp.mu.Lock()
	sp.lastChecked = time.Now()
	if err != nil {
		sp.lastError = err.Error()
		sp.mu.Unlock()
		if sp.logger != nil {
			sp.logger.LogError(err, "Failed to check Vault for updates", "secret_path", sp.secretPath)
		}
		return
	}
	sp.lastError = ""
	if secret == nil || secret.Version <= sp.lastVersion {
		sp.mu.Unlock()
		return
	}
	previous := sp.lastVersion
	sp.lastVersion = secret.Version
	sp.mu.Unlock()

	if sp.logger != nil {
		sp.logger.Info("Vault secret changed, triggering reload",
			"secret_path", sp.secretPath,
			"previous_version", previous,
			"version", secret.Version)
	}
	sp.onUpdate(secret)
}

// Status describes the poller for the stats endpoint.
func (sp *SecretPoller) Status() map[string]any {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	status := map[string]any{
		"running":       sp.running,
		"poll_interval": sp.pollInterval.String(),
		"secret_path":   sp.secretPath,
		"last_version":  sp.lastVersion,
	}
	if !sp.lastChecked.IsZero() {
		status["last_checked"] = sp.lastChecked.UTC().Format(time.RFC3339)
	}
	if sp.lastError != "" {
		status["last_error"] = sp.lastError
	}
	return status
}
