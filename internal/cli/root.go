// Package cli implements the resumetailor command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resumetailor/internal/config"
	"resumetailor/internal/credential"
	"resumetailor/internal/errors"
)

type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// cliViper receives every flag binding; config.Load reads through it so
// flags override the file and the environment.
var cliViper = viper.New()

var configFile string

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "resumetailor",
	Short: "Tailor resumes to job descriptions with Gemini",
	Long: `resumetailor rewrites a resume so it targets a specific job description.
It runs as a web application (serve) or as a one-shot command (tailor), and
can extract text from .txt, .md and .pdf resumes.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfigAndLogger,
}

// Execute runs the root command with ctx, which is cancelled on shutdown
// signals.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfigAndLogger(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	cfg, err := config.Load(cliViper, configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Debug("Configuration loaded",
		"command", cmd.Name(),
		"ai_provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"api_key_source", string(cfg.APIKeySource))

	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	cmd.SetContext(ctx)
	return nil
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

// newCredentials applies Vault secrets to cfg and returns the key store.
// The Vault client is nil when Vault is disabled.
func newCredentials(cfg *config.Config, logger *errors.Logger) (*credential.Store, *config.VaultClient, error) {
	vaultClient, err := config.ApplyVaultSecrets(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return credential.NewStore(cfg.AI.APIKey, cfg.APIKeySource), vaultClient, nil
}

// bindFlag binds a flag of cmd to a configuration key.
func bindFlag(cmd *cobra.Command, key, flagName string) {
	if err := cliViper.BindPFlag(key, cmd.Flags().Lookup(flagName)); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./config.yaml, $HOME/.resumetailor/config.yaml or /etc/resumetailor/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	if err := cliViper.BindPFlag("app.logLevel", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tailorCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(versionCmd)
}
