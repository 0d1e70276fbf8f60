package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/types"
)

// Metrics holds the application instruments. It satisfies the recorder
// interfaces of the generation client and the application controller.
type Metrics struct {
	cfg config.MetricsConfig

	// Generation
	GenerationDuration metric.Float64Histogram
	GenerationRequests metric.Int64Counter
	GenerationErrors   metric.Int64Counter
	TokenUsage         metric.Int64Counter

	// Documents
	Extractions      metric.Int64Counter
	ExtractionErrors metric.Int64Counter

	// Server
	ActiveSessions metric.Int64UpDownCounter
	RateLimitHits  metric.Int64Counter
	Reloads        metric.Int64Counter
	CertExpiry     metric.Float64Gauge
}

func newMetrics(meter metric.Meter, cfg config.MetricsConfig) (*Metrics, error) {
	m := &Metrics{cfg: cfg}
	var err error

	if m.GenerationDuration, err = meter.Float64Histogram(
		"resumetailor_generation_duration_seconds",
		metric.WithDescription("Time spent waiting for the generation model"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation duration histogram: %w", err)
	}

	if m.GenerationRequests, err = meter.Int64Counter(
		"resumetailor_generation_requests_total",
		metric.WithDescription("Generation requests by model and outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation request counter: %w", err)
	}

	if m.GenerationErrors, err = meter.Int64Counter(
		"resumetailor_generation_errors_total",
		metric.WithDescription("Failed generation requests by error code"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation error counter: %w", err)
	}

	if m.TokenUsage, err = meter.Int64Counter(
		"resumetailor_generation_tokens_total",
		metric.WithDescription("Tokens consumed by generation requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create token usage counter: %w", err)
	}

	if m.Extractions, err = meter.Int64Counter(
		"resumetailor_extractions_total",
		metric.WithDescription("Uploaded documents processed by media type"),
	); err != nil {
		return nil, fmt.Errorf("failed to create extraction counter: %w", err)
	}

	if m.ExtractionErrors, err = meter.Int64Counter(
		"resumetailor_extraction_errors_total",
		metric.WithDescription("Uploaded documents that could not be read"),
	); err != nil {
		return nil, fmt.Errorf("failed to create extraction error counter: %w", err)
	}

	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"resumetailor_active_sessions",
		metric.WithDescription("Browser sessions currently held in memory"),
	); err != nil {
		return nil, fmt.Errorf("failed to create session gauge: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumetailor_rate_limit_hits_total",
		metric.WithDescription("Requests rejected by the rate limiter"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}

	if m.Reloads, err = meter.Int64Counter(
		"resumetailor_reloads_total",
		metric.WithDescription("Credential and certificate reloads by kind"),
	); err != nil {
		return nil, fmt.Errorf("failed to create reload counter: %w", err)
	}

	if m.CertExpiry, err = meter.Float64Gauge(
		"resumetailor_certificate_expiry_seconds",
		metric.WithDescription("Seconds until the serving certificate expires"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry gauge: %w", err)
	}

	return m, nil
}

func newNoopMetrics(cfg config.MetricsConfig) *Metrics {
	m, err := newMetrics(noop.NewMeterProvider().Meter("noop"), cfg)
	if err != nil {
		// noop instruments never fail
		panic(err)
	}
	return m
}

// RecordGeneration records one call to the generation model.
func (m *Metrics) RecordGeneration(ctx context.Context, model string, duration time.Duration, usage *types.TokenUsage, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	)

	m.GenerationDuration.Record(ctx, duration.Seconds(), attrs)
	m.GenerationRequests.Add(ctx, 1, attrs)

	if err != nil {
		m.GenerationErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("code", errorCode(err)),
		))
		return
	}

	if m.cfg.TrackTokenUsage && usage != nil {
		m.addTokens(ctx, model, "prompt", usage.PromptTokens)
		m.addTokens(ctx, model, "candidates", usage.CandidatesTokens)
		m.addTokens(ctx, model, "total", usage.TotalTokens)
	}
}

func (m *Metrics) addTokens(ctx context.Context, model, kind string, count int32) {
	if count <= 0 {
		return
	}
	m.TokenUsage.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("type", kind),
	))
}

// RecordExtraction records one processed upload.
func (m *Metrics) RecordExtraction(ctx context.Context, mediaType string, empty bool, err error) {
	if mediaType == "" {
		mediaType = "unknown"
	}
	if err != nil {
		m.ExtractionErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("media_type", mediaType),
			attribute.String("code", errorCode(err)),
		))
		return
	}
	m.Extractions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("media_type", mediaType),
		attribute.Bool("empty", empty),
	))
}

// RecordRateLimitHit counts a rejected request.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, path string) {
	if !m.cfg.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// RecordReload counts a reload. kind is one of "env", "vault_key", "tls".
func (m *Metrics) RecordReload(ctx context.Context, kind string, err error) {
	m.Reloads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", err == nil),
	))
}

// RecordSessions adjusts the active session count by delta.
func (m *Metrics) RecordSessions(ctx context.Context, delta int64) {
	m.ActiveSessions.Add(ctx, delta)
}

// RecordCertificateExpiry sets the time left on the serving certificate.
func (m *Metrics) RecordCertificateExpiry(ctx context.Context, notAfter time.Time) {
	m.CertExpiry.Record(ctx, time.Until(notAfter).Seconds())
}

func errorCode(err error) string {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Code != "" {
		return appErr.Code
	}
	return "UNKNOWN"
}
