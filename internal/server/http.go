// Package server serves the resume tailoring form, its JSON API and the
// health endpoints.
package server

import (
	"fmt"
	"html/template"
	"time"

	"resumetailor/internal/ai"
	"resumetailor/internal/app"
	"resumetailor/internal/config"
	"resumetailor/internal/credential"
	resumetailorErrors "resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/observability"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Dependencies are the collaborators a Server is built from.
type Dependencies struct {
	Config        *config.Config
	Version       string
	Logger        *resumetailorErrors.Logger
	Provider      ai.Provider
	Pipeline      *app.Pipeline
	Extractor     *extract.Extractor
	Credentials   *credential.Store
	Observability *observability.ObservabilityManager

	// Vault is used for secret polling. It may be nil.
	Vault config.SecretReader
}

// Server holds everything the HTTP surface needs.
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   config.RateLimitConfig
	RateLimiter *RateLimiter

	Sessions *SessionManager
	Certs    *CertificateStore

	provider  ai.Provider
	pipeline  *app.Pipeline
	extractor *extract.Extractor
	creds     *credential.Store
	om        *observability.ObservabilityManager
	metrics   *observability.Metrics
	vault     config.SecretReader
	page      *template.Template
	reload    reloaders

	Logger *resumetailorErrors.Logger
}

// NewServer wires a Server from deps. TLS material is loaded here so a bad
// certificate fails before the listener opens.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("server requires a configuration")
	}
	if deps.Pipeline == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("server requires a pipeline and an extractor")
	}

	cfg := deps.Config
	metrics := deps.Observability.Metrics()

	page, err := parsePage()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        deps.Version,
		AppConfig:      cfg,
		TLSConfig:      cfg.Server.TLS,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      cfg.Server.RateLimit,
		provider:       deps.Provider,
		pipeline:       deps.Pipeline,
		extractor:      deps.Extractor,
		creds:          deps.Credentials,
		om:             deps.Observability,
		metrics:        metrics,
		vault:          deps.Vault,
		page:           page,
		Logger:         deps.Logger,
	}

	if s.RateLimit.Enabled {
		s.RateLimiter = NewRateLimiter(s.RateLimit, deps.Logger)
	}

	s.Sessions = NewSessionManager(cfg.Server.Sessions, func() *app.Controller {
		return app.NewController(deps.Pipeline, deps.Extractor, metrics)
	}, metrics, deps.Logger)

	if s.TLSConfig.Mode != "" && s.TLSConfig.Mode != "disabled" {
		certs, err := NewCertificateStore(s.TLSConfig, metrics, deps.Logger)
		if err != nil {
			s.Sessions.Close()
			s.closeRateLimiter()
			return nil, err
		}
		s.Certs = certs
	}

	return s, nil
}
