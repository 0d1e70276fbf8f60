package server

import (
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	resumetailorErrors "resumetailor/internal/errors"
	"resumetailor/internal/types"
)

const extractField = "file"

// tailorAPIHandler runs one stateless tailoring request. It shares the
// pipeline with the form but keeps no session state.
func (s *Server) tailorAPIHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("resumetailor.api").Start(r.Context(), "api.tailor")
	defer span.End()
	logger := s.requestLogger(r)

	var req types.ResumeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, resumetailorErrors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Int("request.resume_length", len(req.OriginalResume)),
		attribute.Int("request.job_length", len(req.JobDescription)),
		attribute.Bool("request.has_career_start", req.CareerStart != ""),
	)

	result, err := s.pipeline.Run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, resumetailorErrors.UserMessage(err))
		logger.LogError(err, "Tailor request failed")
		writeAppError(w, err)
		return
	}

	span.SetAttributes(attribute.Int("response.tailored_length", len(result.TailoredResume)))
	writeJSON(w, http.StatusOK, result)
}

// extractAPIHandler turns one multipart upload into text.
func (s *Server) extractAPIHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("resumetailor.api").Start(r.Context(), "api.extract")
	defer span.End()

	if err := r.ParseMultipartForm(s.AppConfig.App.MaxFileSize); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, resumetailorErrors.ErrCodeInvalidRequest, formErrorAlert(err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile(extractField)
	if err != nil {
		writeErrorResponse(w, resumetailorErrors.ErrCodeInvalidRequest, "multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		span.RecordError(err)
		writeErrorResponse(w, resumetailorErrors.ErrCodeFileReadFailed, "failed to read upload", http.StatusBadRequest)
		return
	}

	doc, err := s.extractor.Extract(header.Filename, header.Header.Get("Content-Type"), data)
	s.metrics.RecordExtraction(ctx, doc.MediaType, doc.Empty(), err)
	span.SetAttributes(
		attribute.String("document.media_type", doc.MediaType),
		attribute.Int("document.size", len(data)),
	)
	if err != nil {
		span.RecordError(err)
		s.requestLogger(r).LogError(err, "Extraction failed", "file", header.Filename)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.ExtractResult{
		FileName:  doc.SourceFileName,
		MediaType: doc.MediaType,
		Text:      doc.Text,
		Empty:     doc.Empty(),
		Notice:    doc.EmptyNotice(),
	})
}
