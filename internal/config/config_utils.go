package config

import (
	"fmt"
	"log"
	"os"

	"resumetailor/internal/credential"
	"resumetailor/internal/utils"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyAPIKeyFallbacks fills AI.APIKey from GEMINI_API_KEY or API_KEY when
// neither the config file nor RESUMETAILOR_AI_APIKEY set it.
func (c *Config) applyAPIKeyFallbacks() {
	if c.AI.APIKey != "" {
		c.APIKeySource = credential.SourceConfig
		if os.Getenv(EnvPrefix+"_AI_APIKEY") == c.AI.APIKey {
			c.APIKeySource = credential.SourceEnv
		}
		return
	}

	for _, name := range APIKeyEnvVars {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		c.AI.APIKey = value
		c.APIKeySource = credential.SourceEnv
		if c.EnvFileValues[name] == value {
			c.APIKeySource = credential.SourceEnvFile
		}
		return
	}

	c.APIKeySource = credential.SourceNone
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}
	if len(c.EnvFileValues) > 0 {
		log.Printf("[CONFIG] Env file: %s", c.App.EnvFile)
	}

	envVars := []string{
		EnvPrefix + "_AI_APIKEY",
		EnvPrefix + "_AI_MODEL",
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_SERVER_HOST",
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if isSecretVar(envVar) {
			log.Printf("[CONFIG]   %s=%s", envVar, utils.MaskSecret(value))
		} else {
			log.Printf("[CONFIG]   %s=%s", envVar, value)
		}
		hasEnvVars = true
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	log.Printf("[CONFIG] AI API Key: %s (source: %s)", utils.MaskSecret(c.AI.APIKey), c.APIKeySource)
	log.Printf("[CONFIG] Server: %s:%s", c.Server.Host, c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Max File Size: %s", utils.FormatFileSize(c.App.MaxFileSize))
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSecretVar(name string) bool {
	switch name {
	case EnvPrefix + "_AI_APIKEY", "GEMINI_API_KEY", "API_KEY":
		return true
	default:
		return false
	}
}
