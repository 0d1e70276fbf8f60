package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/credential"
)

// unsetEnv clears name for the duration of the test and restores it after.
func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if old, ok := os.LookupEnv(name); ok {
			t.Cleanup(func() { _ = os.Setenv(name, old) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(name) })
		}
		_ = os.Unsetenv(name)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "GEMINI_API_KEY", "API_KEY", "RESUMETAILOR_AI_APIKEY")
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "config.yaml", "app:\n  envFile: \"\"\n")

	cfg, err := Load(viper.New(), cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, DefaultModel, cfg.AI.Model)
	assert.Equal(t, 120*time.Second, cfg.AI.Timeout)
	assert.True(t, cfg.AI.CircuitBreaker.Enabled)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10*1024*1024), cfg.App.MaxFileSize)
	assert.Equal(t, "text", cfg.App.DefaultFormat)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.Equal(t, 30, cfg.Server.RateLimit.RequestsPerMin)
	assert.Equal(t, 30*time.Minute, cfg.Server.Sessions.IdleTimeout)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)

	// A missing key is reported at generation time, not at load.
	assert.Empty(t, cfg.AI.APIKey)
	assert.Equal(t, credential.SourceNone, cfg.APIKeySource)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	unsetEnv(t, "GEMINI_API_KEY", "API_KEY", "RESUMETAILOR_AI_APIKEY")
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "config.yaml", `
ai:
  model: gemini-2.0-flash
  timeout: 45s
server:
  port: "9000"
app:
  envFile: ""
  logLevel: debug
`)
	t.Setenv("RESUMETAILOR_SERVER_PORT", "9100")

	cfg, err := Load(viper.New(), cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoadAPIKeyPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		dotenv     string
		wantKey    string
		wantSource credential.Source
	}{
		{
			name:       "prefixed variable wins",
			env:        map[string]string{"RESUMETAILOR_AI_APIKEY": "prefixed", "GEMINI_API_KEY": "gemini"},
			wantKey:    "prefixed",
			wantSource: credential.SourceEnv,
		},
		{
			name:       "gemini before api key",
			env:        map[string]string{"GEMINI_API_KEY": "gemini", "API_KEY": "plain"},
			wantKey:    "gemini",
			wantSource: credential.SourceEnv,
		},
		{
			name:       "api key fallback",
			env:        map[string]string{"API_KEY": "plain"},
			wantKey:    "plain",
			wantSource: credential.SourceEnv,
		},
		{
			name:       "dotenv file",
			dotenv:     "GEMINI_API_KEY=from-dotenv\n",
			wantKey:    "from-dotenv",
			wantSource: credential.SourceEnvFile,
		},
		{
			name:       "process env beats dotenv",
			env:        map[string]string{"GEMINI_API_KEY": "process"},
			dotenv:     "GEMINI_API_KEY=from-dotenv\n",
			wantKey:    "process",
			wantSource: credential.SourceEnv,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "GEMINI_API_KEY", "API_KEY", "RESUMETAILOR_AI_APIKEY")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			envFile := ""
			if tt.dotenv != "" {
				envFile = writeFile(t, dir, ".env", tt.dotenv)
			}
			cfgFile := writeFile(t, dir, "config.yaml", "app:\n  envFile: \""+envFile+"\"\n")

			cfg, err := Load(viper.New(), cfgFile)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.AI.APIKey)
			assert.Equal(t, tt.wantSource, cfg.APIKeySource)
		})
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	unsetEnv(t, "GEMINI_API_KEY", "API_KEY", "RESUMETAILOR_AI_APIKEY")
	tests := []struct {
		name    string
		yaml    string
		message string
	}{
		{"provider", "ai:\n  provider: openai\n", "unsupported AI provider"},
		{"timeout", "ai:\n  timeout: 0s\n", "AI timeout must be positive"},
		{"log level", "app:\n  logLevel: loud\n", "invalid log level"},
		{"format", "app:\n  defaultFormat: xml\n", "invalid default format"},
		{"tls", "server:\n  tls:\n    mode: server\n", "TLS certificate and key are required"},
		{"threshold", "ai:\n  circuitBreaker:\n    failureThreshold: 1.5\n", "failure threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile := writeFile(t, t.TempDir(), "config.yaml", tt.yaml)
			_, err := Load(viper.New(), cfgFile)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadHonoursBoundValues(t *testing.T) {
	unsetEnv(t, "GEMINI_API_KEY", "API_KEY", "RESUMETAILOR_AI_APIKEY")
	v := viper.New()
	v.Set("server.port", "7777")
	cfgFile := writeFile(t, t.TempDir(), "config.yaml", "app:\n  envFile: \"\"\n")

	cfg, err := Load(v, cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Server.Port)
}

func TestReadEnvFile(t *testing.T) {
	values, err := ReadEnvFile("")
	require.NoError(t, err)
	assert.Nil(t, values)

	values, err = ReadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Nil(t, values)

	path := writeFile(t, t.TempDir(), ".env", "# comment\nAPI_KEY=\"quoted\"\nOTHER=1\n")
	values, err = ReadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, "quoted", values["API_KEY"])
	assert.Equal(t, "quoted", APIKeyFromEnvValues(values))
	assert.Equal(t, "g", APIKeyFromEnvValues(map[string]string{"API_KEY": "a", "GEMINI_API_KEY": "g"}))
	assert.Empty(t, APIKeyFromEnvValues(nil))
}
