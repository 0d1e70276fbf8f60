package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	resumetailorErrors "resumetailor/internal/errors"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.requestIDMiddleware(s.setupRoutes()))
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	limit := s.rateLimitMiddleware()
	size := s.requestSizeLimitMiddleware()

	// Form UI
	mux.HandleFunc("GET /{$}", s.indexHandler)
	mux.HandleFunc("POST /upload", limit(size(s.uploadHandler)))
	mux.HandleFunc("POST /clear-file", s.clearFileHandler)
	mux.HandleFunc("POST /generate", limit(size(s.generateHandler)))
	mux.HandleFunc("POST /copy", s.copyHandler)
	mux.HandleFunc("GET /download", s.downloadHandler)

	// JSON API
	mux.HandleFunc("POST /api/v1/tailor", limit(size(s.tailorAPIHandler)))
	mux.HandleFunc("POST /api/v1/extract", limit(size(s.extractAPIHandler)))

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /health/model", s.modelHealthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	return mux
}

// requestIDMiddleware assigns every request an id, echoes it in the
// response and attaches a logger carrying it to the context.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestID returns the id assigned by requestIDMiddleware.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestLogger returns the server logger tagged with the request id.
func (s *Server) requestLogger(r *http.Request) *resumetailorErrors.Logger {
	if id := requestID(r.Context()); id != "" {
		return s.Logger.With("request_id", id)
	}
	return s.Logger
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}
