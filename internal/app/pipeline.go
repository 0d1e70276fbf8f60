// Package app holds the tailoring workflow shared by the CLI, the JSON API
// and the per-session form controller.
package app

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resumetailor/internal/ai"
	"resumetailor/internal/credential"
	"resumetailor/internal/errors"
	"resumetailor/internal/experience"
	"resumetailor/internal/types"
)

const (
	validationMessage    = "Please provide your original resume (by typing or uploading meaningful content) and the job description."
	missingKeyMessage    = "API key is not configured. Please ensure the API_KEY environment variable is set."
	generateFailedPrefix = "Failed to generate resume: "
	unknownFailure       = "An unknown error occurred."
)

// Pipeline validates a request, renders the prompt and calls the generator.
type Pipeline struct {
	Generator ai.Generator
	Creds     *credential.Store
	Now       func() time.Time
	Logger    *errors.Logger
}

// NewPipeline wires a pipeline with the wall clock.
func NewPipeline(gen ai.Generator, creds *credential.Store, logger *errors.Logger) *Pipeline {
	return &Pipeline{
		Generator: gen,
		Creds:     creds,
		Now:       time.Now,
		Logger:    logger,
	}
}

// Prepare runs the checks that must pass before any generation starts: both
// text fields present and a credential configured.
func (p *Pipeline) Prepare(req types.ResumeRequest) error {
	if strings.TrimSpace(req.OriginalResume) == "" || strings.TrimSpace(req.JobDescription) == "" {
		return errors.NewValidationError(errors.ErrCodeValidation, validationMessage, nil)
	}
	if !p.Creds.Configured() {
		return errors.NewConfigError(errors.ErrCodeMissingAPIKey, missingKeyMessage, nil)
	}
	return nil
}

// Generate builds the prompt for req and returns the tailored resume. Errors
// carry the "Failed to generate resume" wording shown to users.
func (p *Pipeline) Generate(ctx context.Context, req types.ResumeRequest) (result *types.TailorResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.NewInternalError(errors.ErrCodeAIUnknown, unknownFailure, nil).
				WithContext("panic", r)
		}
	}()

	req.CareerStart = strings.TrimSpace(req.CareerStart)
	now := p.now()

	ctx, span := otel.Tracer("resumetailor.app").Start(ctx, "app.tailor")
	defer span.End()

	est := experience.Parse(req.CareerStart, now)
	span.SetAttributes(
		attribute.Int("input.resume_length", len(req.OriginalResume)),
		attribute.Int("input.job_length", len(req.JobDescription)),
		attribute.String("experience.status", est.Status.String()),
	)

	prompt := ai.BuildTailorPrompt(req, now)
	gen, err := p.Generator.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return nil, wrapGenerationError(err)
	}

	result = &types.TailorResult{
		TailoredResume: gen.Text,
		Model:          gen.Model,
		Usage:          gen.Usage,
	}
	if est.Status == experience.Computed {
		years := est.Years
		result.ExperienceYears = &years
	}
	return result, nil
}

// Run is Prepare followed by Generate.
func (p *Pipeline) Run(ctx context.Context, req types.ResumeRequest) (*types.TailorResult, error) {
	if err := p.Prepare(req); err != nil {
		return nil, err
	}
	return p.Generate(ctx, req)
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// wrapGenerationError keeps the code of the underlying failure and prefixes
// its user message.
func wrapGenerationError(err error) error {
	code := errors.ErrCodeAIUnknown
	typ := errors.ErrorTypeAI
	if appErr, ok := errors.AsAppError(err); ok {
		code = appErr.Code
		typ = appErr.Type
	}

	message := errors.UserMessage(err)
	if message == "" {
		message = unknownFailure
	} else {
		message = generateFailedPrefix + message
	}

	return &errors.AppError{Type: typ, Code: code, Message: message, Cause: err}
}
