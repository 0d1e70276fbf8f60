package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"resumetailor/internal/config"
	"resumetailor/internal/credential"
	resumetailorErrors "resumetailor/internal/errors"
	"resumetailor/internal/types"
)

// User facing generation failures.
const (
	missingKeyMessage    = "API_KEY environment variable not set."
	invalidKeyMessage    = "Invalid API Key. Please check your configuration."
	requestFailedPrefix  = "Gemini API request failed: "
	emptyResponseMessage = "Received an empty response from the AI."
	unknownErrorMessage  = "An unknown error occurred while communicating with the AI."
)

// fencedBlock matches a response wrapped entirely in one code fence, with an
// optional language tag on the opening line.
var fencedBlock = regexp.MustCompile("^```(?:\\w*\\n)?([\\s\\S]*?)\\n?```$")

// GeminiClient sends tailoring prompts to Gemini. The API key is read from
// the credential store on every call, so rotation needs no restart.
type GeminiClient struct {
	cfg               config.AIConfig
	creds             *credential.Store
	httpClient        *http.Client
	breaker           *Breaker[*genai.GenerateContentResponse]
	modelBreaker      *Breaker[*genai.Model]
	modelCheckTimeout time.Duration
	recorder          Recorder
	logger            *resumetailorErrors.Logger

	mu        sync.Mutex
	client    *genai.Client
	clientKey string
}

var _ Provider = (*GeminiClient)(nil)

// Option customises a GeminiClient.
type Option func(*GeminiClient)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *GeminiClient) {
		g.httpClient = client
	}
}

// WithRecorder reports every generation to r.
func WithRecorder(r Recorder) Option {
	return func(g *GeminiClient) {
		g.recorder = r
	}
}

// WithModelCheckTimeout bounds GetModelInfo.
func WithModelCheckTimeout(d time.Duration) Option {
	return func(g *GeminiClient) {
		g.modelCheckTimeout = d
	}
}

// NewGeminiClient creates a client for cfg.Model. No network activity happens
// until the first call.
func NewGeminiClient(cfg config.AIConfig, creds *credential.Store, logger *resumetailorErrors.Logger, opts ...Option) *GeminiClient {
	g := &GeminiClient{
		cfg:   cfg,
		creds: creds,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker:           newGenerationBreaker(cfg.CircuitBreaker, logger),
		modelBreaker:      newModelBreaker(cfg.CircuitBreaker, logger),
		modelCheckTimeout: 10 * time.Second,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// clientFor returns a genai client bound to apiKey, rebuilding the cached one
// when the key has rotated.
func (g *GeminiClient) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil && g.clientKey == apiKey {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: g.cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, err
	}

	if g.client != nil {
		g.logger.Info("Gemini client rebuilt after credential change", "model", g.cfg.Model)
	}
	g.client = client
	g.clientKey = apiKey
	return client, nil
}

// Generate sends prompt as a single text part and returns the cleaned text.
// There is no retry: a failed call is reported and the user may resubmit.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (gen *types.Generation, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("Recovered from panic during generation", "panic", fmt.Sprint(r))
			gen = nil
			err = resumetailorErrors.NewAIError(resumetailorErrors.ErrCodeAIUnknown,
				unknownErrorMessage, fmt.Errorf("panic: %v", r))
		}
	}()

	apiKey := g.creds.Get()
	if apiKey == "" {
		return nil, resumetailorErrors.NewConfigError(resumetailorErrors.ErrCodeMissingAPIKey, missingKeyMessage, nil)
	}

	tracer := otel.Tracer("resumetailor.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.cfg.Model),
		attribute.Int("input.prompt_length", len(prompt)),
	)

	client, err := g.clientFor(ctx, apiKey)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, classifyError(err)
	}

	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(callCtx, g.cfg.Model, genai.Text(prompt), nil)
	})
	if err != nil {
		classified := classifyError(err)
		g.record(ctx, time.Since(start), nil, classified)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.LogError(classified, "Gemini generation failed", "model", g.cfg.Model)
		return nil, classified
	}

	usage := extractTokenUsage(resp)
	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if text == "" {
		// The empty payload is reported through the same request-failure
		// wording as transport errors.
		emptyErr := resumetailorErrors.NewAIError(resumetailorErrors.ErrCodeAIEmptyResponse,
			requestFailedPrefix+emptyResponseMessage, nil)
		g.record(ctx, time.Since(start), usage, emptyErr)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, emptyErr
	}

	g.record(ctx, time.Since(start), usage, nil)
	if usage != nil {
		span.SetAttributes(
			attribute.Int("ai.tokens.input", int(usage.PromptTokens)),
			attribute.Int("ai.tokens.output", int(usage.CandidatesTokens)),
			attribute.Int("ai.tokens.total", int(usage.TotalTokens)),
		)
	}

	cleaned := CleanGeneratedText(text)
	span.SetAttributes(
		attribute.Int("output.length", len(cleaned)),
		attribute.Bool("success", true),
	)

	return &types.Generation{
		Text:  cleaned,
		Model: g.cfg.Model,
		Usage: usage,
	}, nil
}

func (g *GeminiClient) record(ctx context.Context, d time.Duration, usage *types.TokenUsage, err error) {
	if g.recorder != nil {
		g.recorder.RecordGeneration(ctx, g.cfg.Model, d, usage, err)
	}
}

// CleanGeneratedText trims the response and unwraps a single code fence that
// encloses all of it. A fence with nothing inside is left as is.
func CleanGeneratedText(text string) string {
	cleaned := strings.TrimSpace(text)
	if match := fencedBlock.FindStringSubmatch(cleaned); match != nil && match[1] != "" {
		cleaned = strings.TrimSpace(match[1])
	}
	return cleaned
}

// classifyError maps a Gemini failure to the generation error taxonomy.
func classifyError(err error) error {
	if _, ok := resumetailorErrors.AsAppError(err); ok {
		return err
	}

	msg := err.Error()
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return resumetailorErrors.NewAIError(resumetailorErrors.ErrCodeCircuitOpen, requestFailedPrefix+msg, err)
	case strings.Contains(msg, "API key not valid"), isAuthFailure(err):
		return resumetailorErrors.NewAIError(resumetailorErrors.ErrCodeInvalidAPIKey, invalidKeyMessage, err)
	case errors.Is(err, context.DeadlineExceeded):
		return resumetailorErrors.NewAIError(resumetailorErrors.ErrCodeAITimeout, requestFailedPrefix+msg, err)
	default:
		return resumetailorErrors.NewAIError(resumetailorErrors.ErrCodeAIRequestFailed, requestFailedPrefix+msg, err)
	}
}

func isAuthFailure(err error) bool {
	code := statusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

func extractTokenUsage(resp *genai.GenerateContentResponse) *types.TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	return &types.TokenUsage{
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		CandidatesTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      resp.UsageMetadata.TotalTokenCount,
	}
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks that the configured model is reachable with the
// current key.
func (g *GeminiClient) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.cfg.Model}

	apiKey := g.creds.Get()
	if apiKey == "" {
		info.Error = "API key is not configured"
		return info
	}

	client, err := g.clientFor(ctx, apiKey)
	if err != nil {
		info.Error = fmt.Sprintf("Failed to create Gemini client: %v", err)
		return info
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return client.Models.Get(checkCtx, g.cfg.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.cfg.Model,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.cfg.Model,
		"display_name", info.DisplayName,
		"version", info.Version)

	return info
}

// CircuitBreakerStats reports both breakers and their combined health.
func (g *GeminiClient) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"generation":      g.breaker.Stats(),
		"model":           g.modelBreaker.Stats(),
		"overall_healthy": g.breaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close drops the cached genai client.
func (g *GeminiClient) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.client = nil
	g.clientKey = ""
	return nil
}
