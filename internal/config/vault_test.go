package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/credential"
	"resumetailor/internal/errors"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

type fakeSecretReader map[string]*VaultSecret

func (f fakeSecretReader) GetSecretV2(path string) (*VaultSecret, error) {
	secret, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return secret, nil
}

// newVaultServer serves /v1/sys/health and KV v2 reads for the given paths.
func newVaultServer(t *testing.T, secrets map[string]map[string]any, version int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/sys/health" {
			_, _ = w.Write([]byte(`{"initialized":true,"sealed":false,"standby":false,"version":"1.15.0"}`))
			return
		}
		data, ok := secrets[r.URL.Path[len("/v1/"):]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": version},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "int value", input: 7, expected: 7},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "json number", input: json.Number("12"), expected: 12},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseKVv2Secret(t *testing.T) {
	valid := &api.Secret{Data: map[string]any{
		"data":     map[string]any{"api_key": "k"},
		"metadata": map[string]any{"version": json.Number("3")},
	}}
	secret, err := parseKVv2Secret(valid, "secret/data/gemini")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	assert.Equal(t, "k", secret.Data["api_key"])

	_, err = parseKVv2Secret(&api.Secret{Data: map[string]any{"api_key": "k"}}, "kv1")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = parseKVv2Secret(&api.Secret{Data: map[string]any{"data": map[string]any{}}}, "p")
	assert.ErrorContains(t, err, "missing 'metadata' field")

	_, err = parseKVv2Secret(&api.Secret{Data: map[string]any{
		"data": map[string]any{}, "metadata": map[string]any{},
	}}, "p")
	assert.ErrorContains(t, err, "missing 'version' field")
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  s.file-token\n"), 0600))

	token, err := resolveVaultToken(VaultConfig{Token: "s.direct", TokenFile: tokenFile}, nil)
	require.NoError(t, err)
	assert.Equal(t, "s.direct", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile}, nil)
	require.NoError(t, err)
	assert.Equal(t, "s.file-token", token)

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(dir, "missing")}, nil)
	assert.ErrorContains(t, err, "failed to read vault token file")

	_, err = resolveVaultToken(VaultConfig{}, nil)
	assert.ErrorContains(t, err, "vault token is required")
}

func TestTLSMaterialFromSecret(t *testing.T) {
	material, err := TLSMaterialFromSecret(&VaultSecret{Data: map[string]any{
		"cert": "CERT", "key": "KEY",
	}})
	require.NoError(t, err)

	tls := TLSConfig{CAContent: "keep"}
	assert.Equal(t, 2, material.ApplyTo(&tls))
	assert.Equal(t, "CERT", tls.CertContent)
	assert.Equal(t, "KEY", tls.KeyContent)
	assert.Equal(t, "keep", tls.CAContent)

	_, err = TLSMaterialFromSecret(&VaultSecret{Data: map[string]any{"cert_file": "/x"}})
	assert.ErrorContains(t, err, "'cert_file' field is no longer supported")
}

func TestApplySecrets(t *testing.T) {
	reader := fakeSecretReader{
		"secret/data/gemini": {Data: map[string]any{"api_key": "vault-key"}, Version: 2},
		"secret/data/tls":    {Data: map[string]any{"cert": "C", "key": "K", "ca": "CA"}, Version: 1},
	}

	cfg := &Config{
		AI:           AIConfig{APIKey: "file-key"},
		APIKeySource: credential.SourceConfig,
		Server:       ServerConfig{TLS: TLSConfig{Mode: "mutual"}},
		Vault: VaultConfig{Enabled: true, Secrets: VaultSecrets{
			GeminiKey: "secret/data/gemini",
			TLSCerts:  "secret/data/tls",
		}},
	}

	require.NoError(t, applySecrets(reader, cfg, newTestLogger()))
	assert.Equal(t, "vault-key", cfg.AI.APIKey)
	assert.Equal(t, credential.SourceVault, cfg.APIKeySource)
	assert.Equal(t, "CA", cfg.Server.TLS.CAContent)
}

func TestApplySecretsErrors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Enabled: true, Secrets: VaultSecrets{GeminiKey: "secret/data/none"}}}
		assert.ErrorContains(t, applySecrets(fakeSecretReader{}, cfg, nil), "failed to load Gemini API key")
	})

	t.Run("empty key keeps existing", func(t *testing.T) {
		reader := fakeSecretReader{"g": {Data: map[string]any{"api_key": ""}}}
		cfg := &Config{AI: AIConfig{APIKey: "env"}, Vault: VaultConfig{Enabled: true, Secrets: VaultSecrets{GeminiKey: "g"}}}
		require.NoError(t, applySecrets(reader, cfg, nil))
		assert.Equal(t, "env", cfg.AI.APIKey)
	})

	t.Run("incomplete tls", func(t *testing.T) {
		reader := fakeSecretReader{"t": {Data: map[string]any{"cert": "C"}}}
		cfg := &Config{
			Server: ServerConfig{TLS: TLSConfig{Mode: "server"}},
			Vault:  VaultConfig{Enabled: true, Secrets: VaultSecrets{TLSCerts: "t"}},
		}
		assert.ErrorContains(t, applySecrets(reader, cfg, nil), "TLS material from vault is incomplete")
	})
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{AI: AIConfig{APIKey: "unchanged"}}
	client, err := ApplyVaultSecrets(cfg, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.Equal(t, "unchanged", cfg.AI.APIKey)
}

func TestVaultClientAgainstServer(t *testing.T) {
	srv := newVaultServer(t, map[string]map[string]any{
		"secret/data/gemini": {"api_key": "from-vault"},
	}, 4)

	cfg := &Config{Vault: VaultConfig{
		Enabled: true,
		Address: srv.URL,
		Token:   "s.test",
		Secrets: VaultSecrets{GeminiKey: "secret/data/gemini"},
	}}

	client, err := ApplyVaultSecrets(cfg, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "from-vault", cfg.AI.APIKey)

	secret, err := client.GetSecretV2("secret/data/gemini")
	require.NoError(t, err)
	assert.Equal(t, int64(4), secret.Version)

	value, err := client.GetStringSecret("secret/data/gemini", "api_key")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", value)

	_, err = client.GetStringSecret("secret/data/gemini", "other")
	assert.ErrorContains(t, err, "key 'other' not found")

	_, err = client.GetSecretV2("secret/data/missing")
	assert.Error(t, err)
}

func TestNilVaultClient(t *testing.T) {
	var vc *VaultClient
	_, err := vc.GetSecretV2("secret/data/x")
	assert.ErrorContains(t, err, "vault client not initialized")
}
