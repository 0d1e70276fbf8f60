package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resumetailor/internal/ai"
	"resumetailor/internal/app"
	"resumetailor/internal/credential"
	"resumetailor/internal/extract"
	"resumetailor/internal/observability"
	"resumetailor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resume tailoring web application",
	Long: `Start the web application: a form to paste or upload a resume, enter
the job description and an optional career start date, then generate,
copy and download the tailored resume.

Also served:
- POST /api/v1/tailor: Tailor a resume (JSON)
- POST /api/v1/extract: Extract text from an uploaded file
- GET /health: Health check endpoint
- GET /stats: Server statistics

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")

	bindFlag(serveCmd, "server.port", "port")
	bindFlag(serveCmd, "server.host", "host")
	bindFlag(serveCmd, "server.tls.mode", "tls-mode")
	bindFlag(serveCmd, "server.tls.certFile", "cert-file")
	bindFlag(serveCmd, "server.tls.keyFile", "key-file")
	bindFlag(serveCmd, "server.tls.caFile", "ca-file")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	creds, vaultClient, err := newCredentials(cfg, logger)
	if err != nil {
		return err
	}
	creds.OnChange(func(source credential.Source) {
		logger.Info("Gemini API key updated", "source", string(source), "configured", creds.Configured())
	})

	om, err := observability.NewObservabilityManager(cfg.Observability, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()

	opts := []ai.Option{ai.WithRecorder(om.Metrics())}
	if timeout := cfg.Observability.HealthCheck.AIModelCheckTimeout; timeout > 0 {
		opts = append(opts, ai.WithModelCheckTimeout(timeout))
	}
	provider, err := ai.NewProvider(cfg.AI, creds, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}

	deps := server.Dependencies{
		Config:        cfg,
		Version:       Version,
		Logger:        logger,
		Provider:      provider,
		Pipeline:      app.NewPipeline(provider, creds, logger),
		Extractor:     extract.New(cfg.App.MaxFileSize, logger),
		Credentials:   creds,
		Observability: om,
	}
	// A nil *VaultClient must not become a non-nil interface.
	if vaultClient != nil {
		deps.Vault = vaultClient
	}

	srv, err := server.NewServer(deps)
	if err != nil {
		_ = provider.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(cmd.Context())
}
