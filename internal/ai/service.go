package ai

import (
	"fmt"

	"resumetailor/internal/config"
	"resumetailor/internal/credential"
	"resumetailor/internal/errors"
)

// NewProvider builds the generation provider named by cfg.Provider.
func NewProvider(cfg config.AIConfig, creds *credential.Store, logger *errors.Logger, opts ...Option) (Provider, error) {
	logger.Debug("Initializing AI provider",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"timeout", cfg.Timeout,
		"circuit_breaker", cfg.CircuitBreaker.Enabled,
		"credential_configured", creds.Configured())

	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(cfg, creds, logger, opts...), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}
