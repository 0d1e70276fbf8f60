package server

import (
	"context"
	"fmt"
	"time"

	"resumetailor/internal/config"
	"resumetailor/internal/credential"
	"resumetailor/internal/watch"
)

const envFileDebounce = 500 * time.Millisecond

// reloaders are the background watchers that rotate credentials and TLS
// material without a restart.
type reloaders struct {
	envFile   *watch.FileWatcher
	tlsFiles  *watch.FileWatcher
	vaultKey  *watch.SecretPoller
	vaultCert *watch.SecretPoller
}

func (s *Server) startReloaders() error {
	cfg := s.AppConfig

	if cfg.App.WatchEnvFile && cfg.App.EnvFile != "" {
		s.reload.envFile = watch.NewFileWatcher("env", []string{cfg.App.EnvFile},
			envFileDebounce, s.reloadEnvFile, s.Logger)
		if err := s.reload.envFile.Start(); err != nil {
			return fmt.Errorf("failed to watch env file: %w", err)
		}
	}

	if s.vault != nil && cfg.Vault.PollInterval > 0 {
		if path := cfg.Vault.Secrets.GeminiKey; path != "" {
			s.reload.vaultKey = watch.NewSecretPoller(s.vault, path, cfg.Vault.PollInterval, s.applyVaultKey, s.Logger)
			if err := s.reload.vaultKey.Start(); err != nil {
				return fmt.Errorf("failed to poll Vault key secret: %w", err)
			}
		}
		if path := cfg.Vault.Secrets.TLSCerts; path != "" && s.Certs != nil && s.TLSConfig.AutoReload.Enabled {
			s.reload.vaultCert = watch.NewSecretPoller(s.vault, path, cfg.Vault.PollInterval, s.applyVaultTLS, s.Logger)
			if err := s.reload.vaultCert.Start(); err != nil {
				return fmt.Errorf("failed to poll Vault TLS secret: %w", err)
			}
		}
	}

	if s.Certs != nil && s.TLSConfig.AutoReload.Enabled {
		if files := s.Certs.Files(); len(files) > 0 {
			s.reload.tlsFiles = watch.NewFileWatcher("tls", files,
				s.TLSConfig.AutoReload.DebounceDelay, s.reloadTLSFiles, s.Logger)
			if err := s.reload.tlsFiles.Start(); err != nil {
				return fmt.Errorf("failed to watch TLS files: %w", err)
			}
		}
	}

	return nil
}

func (s *Server) stopReloaders() {
	for _, fw := range []*watch.FileWatcher{s.reload.envFile, s.reload.tlsFiles} {
		if fw != nil {
			_ = fw.Stop()
		}
	}
	for _, sp := range []*watch.SecretPoller{s.reload.vaultKey, s.reload.vaultCert} {
		if sp != nil {
			_ = sp.Stop()
		}
	}
}

// reloadEnvFile picks up a rotated key from the .env file. Keys from the
// environment, the config file or Vault take precedence and are left alone.
func (s *Server) reloadEnvFile() {
	ctx := context.Background()
	switch s.creds.Source() {
	case credential.SourceEnvFile, credential.SourceNone:
	default:
		s.Logger.Debug("Env file changed but the API key comes from a higher precedence source",
			"source", string(s.creds.Source()))
		return
	}

	values, err := config.ReadEnvFile(s.AppConfig.App.EnvFile)
	if err != nil {
		s.Logger.LogError(err, "Failed to reload env file", "path", s.AppConfig.App.EnvFile)
		s.metrics.RecordReload(ctx, "env", err)
		return
	}

	key := config.APIKeyFromEnvValues(values)
	if s.creds.Set(key, credential.SourceEnvFile) {
		s.Logger.Info("API key reloaded from env file", "configured", key != "")
	}
	s.metrics.RecordReload(ctx, "env", nil)
}

func (s *Server) applyVaultKey(secret *config.VaultSecret) {
	ctx := context.Background()
	key, err := secret.StringField(config.VaultGeminiKeyField)
	if err != nil {
		s.Logger.LogError(err, "Rotated Vault secret has no usable API key")
		s.metrics.RecordReload(ctx, "vault_key", err)
		return
	}
	if key == "" {
		s.Logger.Warn("Ignoring empty API key from Vault", "version", secret.Version)
		return
	}

	if s.creds.Set(key, credential.SourceVault) {
		s.Logger.Info("API key rotated from Vault", "version", secret.Version)
	}
	s.metrics.RecordReload(ctx, "vault_key", nil)
}

func (s *Server) applyVaultTLS(secret *config.VaultSecret) {
	material, err := config.TLSMaterialFromSecret(secret)
	if err != nil {
		s.Logger.LogError(err, "Rotated Vault TLS secret is invalid")
		s.metrics.RecordReload(context.Background(), "tls", err)
		return
	}
	// ApplyMaterial records its own outcome.
	_ = s.Certs.ApplyMaterial(material)
}

func (s *Server) reloadTLSFiles() {
	_ = s.Certs.Reload()
}

func (s *Server) reloadStatus() map[string]any {
	status := map[string]any{}
	if s.reload.envFile != nil {
		status["env_file"] = s.reload.envFile.Status()
	}
	if s.reload.tlsFiles != nil {
		status["tls_files"] = s.reload.tlsFiles.Status()
	}
	if s.reload.vaultKey != nil {
		status["vault_key"] = s.reload.vaultKey.Status()
	}
	if s.reload.vaultCert != nil {
		status["vault_tls"] = s.reload.vaultCert.Status()
	}
	return status
}
