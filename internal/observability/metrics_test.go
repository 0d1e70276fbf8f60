package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/types"
)

func newTestMetrics(t *testing.T, cfg config.MetricsConfig) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := newMetrics(provider.Meter("test"), cfg)
	require.NoError(t, err)
	return m, reader
}

// sumOf adds every data point of the named counter whose attributes contain
// the given key/value pairs.
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, match ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if hasAll(dp.Attributes, match) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAll(set attribute.Set, match []attribute.KeyValue) bool {
	for _, kv := range match {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}

func TestRecordGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("success with token tracking", func(t *testing.T) {
		m, reader := newTestMetrics(t, config.MetricsConfig{TrackTokenUsage: true})
		usage := &types.TokenUsage{PromptTokens: 120, CandidatesTokens: 30, TotalTokens: 150}

		m.RecordGeneration(ctx, "gemini-test", 2*time.Second, usage, nil)

		assert.EqualValues(t, 1, sumOf(t, reader, "resumetailor_generation_requests_total",
			attribute.String("status", "success")))
		assert.EqualValues(t, 150, sumOf(t, reader, "resumetailor_generation_tokens_total",
			attribute.String("type", "total")))
		assert.EqualValues(t, 120, sumOf(t, reader, "resumetailor_generation_tokens_total",
			attribute.String("type", "prompt")))
		assert.Zero(t, sumOf(t, reader, "resumetailor_generation_errors_total"))
	})

	t.Run("tokens not tracked when disabled", func(t *testing.T) {
		m, reader := newTestMetrics(t, config.MetricsConfig{})
		m.RecordGeneration(ctx, "gemini-test", time.Second, &types.TokenUsage{TotalTokens: 10}, nil)
		assert.Zero(t, sumOf(t, reader, "resumetailor_generation_tokens_total"))
	})

	t.Run("error is counted by code", func(t *testing.T) {
		m, reader := newTestMetrics(t, config.MetricsConfig{TrackTokenUsage: true})
		err := errors.NewAIError(errors.ErrCodeAITimeout, "timed out", nil)

		m.RecordGeneration(ctx, "gemini-test", time.Second, nil, err)
		m.RecordGeneration(ctx, "gemini-test", time.Second, nil, fmt.Errorf("plain"))

		assert.EqualValues(t, 1, sumOf(t, reader, "resumetailor_generation_errors_total",
			attribute.String("code", errors.ErrCodeAITimeout)))
		assert.EqualValues(t, 1, sumOf(t, reader, "resumetailor_generation_errors_total",
			attribute.String("code", "UNKNOWN")))
		assert.EqualValues(t, 2, sumOf(t, reader, "resumetailor_generation_requests_total",
			attribute.String("status", "error")))
	})
}

func TestRecordExtraction(t *testing.T) {
	ctx := context.Background()
	m, reader := newTestMetrics(t, config.MetricsConfig{})

	m.RecordExtraction(ctx, "application/pdf", false, nil)
	m.RecordExtraction(ctx, "application/pdf", true, nil)
	m.RecordExtraction(ctx, "", false, errors.NewValidationError(errors.ErrCodeUnsupportedFileType, "nope", nil))

	assert.EqualValues(t, 2, sumOf(t, reader, "resumetailor_extractions_total",
		attribute.String("media_type", "application/pdf")))
	assert.EqualValues(t, 1, sumOf(t, reader, "resumetailor_extractions_total",
		attribute.Bool("empty", true)))
	assert.EqualValues(t, 1, sumOf(t, reader, "resumetailor_extraction_errors_total",
		attribute.String("media_type", "unknown"),
		attribute.String("code", errors.ErrCodeUnsupportedFileType)))
}

func TestServerMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("rate limit hits respect the tracking flag", func(t *testing.T) {
		m, reader := newTestMetrics(t, config.MetricsConfig{TrackRateLimits: false})
		m.RecordRateLimitHit(ctx, "/generate")
		assert.Zero(t, sumOf(t, reader, "resumetailor_rate_limit_hits_total"))

		m, reader = newTestMetrics(t, config.MetricsConfig{TrackRateLimits: true})
		m.RecordRateLimitHit(ctx, "/generate")
		assert.EqualValues(t, 1, sumOf(t, reader, "resumetailor_rate_limit_hits_total",
			attribute.String("path", "/generate")))
	})

	t.Run("reloads and sessions", func(t *testing.T) {
		m, reader := newTestMetrics(t, config.MetricsConfig{})
		m.RecordReload(ctx, "env", nil)
		m.RecordReload(ctx, "tls", fmt.Errorf("bad pem"))
		m.RecordSessions(ctx, 2)
		m.RecordSessions(ctx, -1)

		assert.EqualValues(t, 1, sumOf(t, reader, "resumetailor_reloads_total",
			attribute.String("kind", "tls"), attribute.Bool("success", false)))
		assert.EqualValues(t, 1, sumOf(t, reader, "resumetailor_active_sessions"))
	})
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(config.ObservabilityConfig{Enabled: false, ServiceName: "resumetailor"}, "1.0.0")
	require.NoError(t, err)

	m := om.Metrics()
	require.NotNil(t, m)
	m.RecordGeneration(context.Background(), "gemini-test", time.Second, nil, nil)
	m.RecordCertificateExpiry(context.Background(), time.Now().Add(time.Hour))

	status := om.Status()
	assert.Equal(t, false, status["enabled"])
	assert.Equal(t, "1.0.0", status["version"])

	mw := om.HTTPMiddleware()
	require.NotNil(t, mw)
	assert.NotNil(t, om.Tracer("test"))
	assert.NoError(t, om.Shutdown(context.Background()))

	var nilManager *ObservabilityManager
	assert.NotNil(t, nilManager.Metrics())
}

func TestEnabledManagerWithManualReader(t *testing.T) {
	om, err := NewObservabilityManager(config.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "resumetailor-test",
		SampleRate:  1.0,
	}, "dev")
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	assert.Equal(t, true, om.Status()["enabled"])
	assert.Equal(t, false, om.Status()["prometheus"])
	om.Metrics().RecordReload(context.Background(), "env", nil)
}
