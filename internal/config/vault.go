package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"resumetailor/internal/credential"
	"resumetailor/internal/errors"
	"resumetailor/internal/utils"
)

// Field names inside the KV v2 secrets.
const (
	VaultGeminiKeyField = "api_key"
	VaultTLSCertField   = "cert"
	VaultTLSKeyField    = "key"
	VaultTLSCAField     = "ca"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	Token        string        `mapstructure:"token"`
	TokenFile    string        `mapstructure:"tokenFile"`
	Namespace    string        `mapstructure:"namespace"`
	PollInterval time.Duration `mapstructure:"pollInterval"` // version polling for rotation, 0 disables

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault
type VaultSecrets struct {
	GeminiKey string `mapstructure:"geminiKey"` // KV v2 path holding api_key
	TLSCerts  string `mapstructure:"tlsCerts"`  // KV v2 path holding cert, key, ca
}

// SecretReader reads KV v2 secrets. *VaultClient implements it.
type SecretReader interface {
	GetSecretV2(path string) (*VaultSecret, error)
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a new Vault client from configuration. It returns
// nil, nil when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled")
		}
		return nil, nil
	}

	if logger != nil {
		logger.Debug("Initializing Vault client",
			"address", config.Address,
			"namespace", config.Namespace,
			"token_file", config.TokenFile,
			"has_token", config.Token != "")
	}

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
		client: client,
		config: config,
		logger: logger,
	}, nil
}

func createVaultAPIClient(config VaultConfig, logger *errors.Logger) (*api.Client, error) {
	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to create Vault client")
		}
		return nil, fmt.Errorf("failed to create vault client: %w", err)
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
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			if logger != nil {
				logger.LogError(err, "Failed to read Vault token file", "file", config.TokenFile)
			}
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}

	return token, nil
}

func testVaultConnection(client *api.Client, address string, logger *errors.Logger) error {
	health, err := client.Sys().Health()
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to connect to Vault", "address", address)
		}
		return fmt.Errorf("failed to connect to vault: %w", err)
	}

	if logger != nil {
		logger.Info("Successfully connected to Vault",
			"address", address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

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

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		if vc.logger != nil {
			vc.logger.LogError(err, "Failed to read secret from Vault", "path", path)
		}
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	return parseKVv2Secret(secret, path)
}

// parseKVv2Secret unpacks the data and metadata.version fields of a KV v2
// read response.
func parseKVv2Secret(secret *api.Secret, path string) (*VaultSecret, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses version value from the types the Vault client
// may decode it into.
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// StringField returns a string value from a secret.
func (s *VaultSecret) StringField(key string) (string, error) {
	value, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret", key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string", key)
	}
	return str, nil
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, err := secret.StringField(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	if vc.logger != nil {
		vc.logger.Debug("String secret retrieved from Vault",
			"path", path,
			"key", key,
			"masked_value", utils.MaskSecret(value))
	}
	return value, nil
}

// TLSMaterial is PEM content read from Vault.
type TLSMaterial struct {
	CertContent string
	KeyContent  string
	CAContent   string
}

// TLSMaterialFromSecret extracts cert, key and ca from a secret. The legacy
// *_file fields are rejected.
func TLSMaterialFromSecret(secret *VaultSecret) (TLSMaterial, error) {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, has := secret.Data[field]; has {
			return TLSMaterial{}, fmt.Errorf("vault TLS configuration error: '%s' field is no longer supported. Store certificate content in '%s' field instead",
				field, strings.TrimSuffix(field, "_file"))
		}
	}

	var m TLSMaterial
	m.CertContent, _ = secret.Data[VaultTLSCertField].(string)
	m.KeyContent, _ = secret.Data[VaultTLSKeyField].(string)
	m.CAContent, _ = secret.Data[VaultTLSCAField].(string)
	return m, nil
}

// ApplyTo copies non-empty material into a TLS config.
func (m TLSMaterial) ApplyTo(tls *TLSConfig) int {
	applied := 0
	for _, f := range []struct {
		value  string
		target *string
	}{
		{m.CertContent, &tls.CertContent},
		{m.KeyContent, &tls.KeyContent},
		{m.CAContent, &tls.CAContent},
	} {
		if f.value != "" {
			*f.target = f.value
			applied++
		}
	}
	return applied
}

// ApplyVaultSecrets connects to Vault when enabled, applies the configured
// secrets to config and returns the client for later polling. It returns a
// nil client when Vault is disabled.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) (*VaultClient, error) {
	if !config.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled, skipping secret loading")
		}
		return nil, nil
	}

	if logger != nil {
		logger.Info("Loading secrets from Vault",
			"gemini_key_path", config.Vault.Secrets.GeminiKey,
			"tls_certs_path", config.Vault.Secrets.TLSCerts)
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault client: %w", err)
	}

	if err := applySecrets(client, config, logger); err != nil {
		return nil, err
	}
	return client, nil
}

func applySecrets(reader SecretReader, config *Config, logger *errors.Logger) error {
	if err := loadGeminiKeyFromVault(reader, config, logger); err != nil {
		return err
	}
	if err := loadTLSCertsFromVault(reader, config, logger); err != nil {
		return err
	}
	if config.TLSFromVault() {
		if err := config.Server.TLS.ValidateMaterial(); err != nil {
			return fmt.Errorf("TLS material from vault is incomplete: %w", err)
		}
	}

	if logger != nil {
		logger.Info("Successfully completed applying secrets from Vault")
	}
	return nil
}

func loadGeminiKeyFromVault(reader SecretReader, config *Config, logger *errors.Logger) error {
	path := config.Vault.Secrets.GeminiKey
	if path == "" {
		return nil
	}

	secret, err := reader.GetSecretV2(path)
	if err != nil {
		return fmt.Errorf("failed to load Gemini API key from vault: %w", err)
	}
	geminiKey, err := secret.StringField(VaultGeminiKeyField)
	if err != nil {
		return fmt.Errorf("failed to load Gemini API key from vault: %s: %w", path, err)
	}

	if geminiKey == "" {
		if logger != nil {
			logger.Warn("Empty Gemini API key found in Vault", "path", path)
		}
		return nil
	}

	config.AI.APIKey = geminiKey
	config.APIKeySource = credential.SourceVault
	if logger != nil {
		logger.Info("Gemini API key loaded from Vault", "version", secret.Version)
	}
	return nil
}

func loadTLSCertsFromVault(reader SecretReader, config *Config, logger *errors.Logger) error {
	path := config.Vault.Secrets.TLSCerts
	if path == "" {
		return nil
	}

	secret, err := reader.GetSecretV2(path)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
	}

	material, err := TLSMaterialFromSecret(secret)
	if err != nil {
		return err
	}
	count := material.ApplyTo(&config.Server.TLS)

	if logger != nil {
		logger.Info("TLS certificates loaded from Vault", "certificates_loaded", count, "version", secret.Version)
	}
	return nil
}
