package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	resumetailorErrors "resumetailor/internal/errors"
)

func (s *Server) modelCheckTimeout() time.Duration {
	if t := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

// healthHandler reports liveness plus credential, circuit breaker and
// certificate state. It never calls the model.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumetailor",
		"version": s.Version,
	}
	healthy := true

	if s.creds != nil {
		response["credential"] = s.creds.Status()
	}

	if s.provider != nil {
		breakers := s.provider.CircuitBreakerStats()
		response["circuit_breakers"] = breakers
		if ok, exists := breakers["overall_healthy"].(bool); exists && !ok {
			healthy = false
		}
	}

	if s.Certs != nil {
		certStatus := s.Certs.Status()
		response["certificates"] = certStatus
		if ok, exists := certStatus["healthy"].(bool); exists && !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// modelHealthHandler asks the model API whether the configured model exists.
func (s *Server) modelHealthHandler(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeErrorResponse(w, resumetailorErrors.ErrCodeModelUnavailable, "no generation provider configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.modelCheckTimeout())
	defer cancel()

	info := s.provider.GetModelInfo(ctx)
	status := http.StatusOK
	if !info.Available {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, info)
}

// statsHandler provides server statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumetailor",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.AppConfig.App.MaxFileSize,
			"tls_mode":               s.TLSConfig.Mode,
		},
		"sessions": map[string]any{
			"active": s.Sessions.Count(),
		},
		"reload":        s.reloadStatus(),
		"observability": s.om.Status(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.Stats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// statusFor maps an application error to an HTTP status.
func statusFor(err error) int {
	appErr, ok := resumetailorErrors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case resumetailorErrors.ErrCodeBusy:
		return http.StatusConflict
	case resumetailorErrors.ErrCodeNoResult:
		return http.StatusNotFound
	case resumetailorErrors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case resumetailorErrors.ErrCodeUnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case resumetailorErrors.ErrCodeMissingAPIKey, resumetailorErrors.ErrCodeCircuitOpen:
		return http.StatusServiceUnavailable
	case resumetailorErrors.ErrCodeAITimeout:
		return http.StatusGatewayTimeout
	}

	switch appErr.Type {
	case resumetailorErrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case resumetailorErrors.ErrorTypeExtraction:
		return http.StatusUnprocessableEntity
	case resumetailorErrors.ErrorTypeAI, resumetailorErrors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes err with its code and user-facing message.
func writeAppError(w http.ResponseWriter, err error) {
	code := "INTERNAL_ERROR"
	if appErr, ok := resumetailorErrors.AsAppError(err); ok && appErr.Code != "" {
		code = appErr.Code
	}
	writeErrorResponse(w, code, resumetailorErrors.UserMessage(err), statusFor(err))
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, code, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
