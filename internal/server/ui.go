package server

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"resumetailor/internal/app"
	resumetailorErrors "resumetailor/internal/errors"
	"resumetailor/internal/extract"
)

//go:embed templates/index.html
var indexTemplate string

const (
	uploadField         = "resumeFile"
	uploadMissingAlert  = "Please choose a .txt, .md or .pdf file to upload."
	uploadTooLargeAlert = "The uploaded file is too large."
	copyFailedAlert     = "Failed to copy text. Please try again or copy manually."
	noResultAlert       = "There is no tailored resume yet. Generate one first."
)

type pageData struct {
	State             app.State
	Alert             string
	Year              int
	Accept            string
	CopyResetMs       int64
	CopyFailedMessage string
}

func parsePage() (*template.Template, error) {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return tmpl, nil
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Get(w, r)

	data := pageData{
		State:             sess.controller.Snapshot(),
		Alert:             sess.takeAlert(),
		Year:              time.Now().Year(),
		Accept:            extract.AcceptedExtensions,
		CopyResetMs:       app.CopyResetDelay.Milliseconds(),
		CopyFailedMessage: copyFailedAlert,
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.requestLogger(r).LogError(err, "Failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// applyFormFields copies the text inputs of the form into the controller.
// Fields absent from the request are left alone.
func applyFormFields(ctrl *app.Controller, r *http.Request, includeResume bool) {
	if includeResume {
		if v, ok := formValue(r, "originalResume"); ok {
			ctrl.SetResumeText(v)
		}
	}
	if v, ok := formValue(r, "jobDescription"); ok {
		ctrl.SetJobDescription(v)
	}
	if v, ok := formValue(r, "careerStartDate"); ok {
		ctrl.SetCareerStart(v)
	}
}

func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm != nil {
		if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
			return vs[0], true
		}
	}
	if vs, ok := r.PostForm[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

// parseForm accepts both urlencoded and multipart bodies.
func (s *Server) parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(s.AppConfig.App.MaxFileSize)
	}
	return r.ParseForm()
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Get(w, r)
	defer redirectHome(w, r)

	if err := s.parseForm(r); err != nil {
		sess.setAlert(formErrorAlert(err))
		return
	}
	applyFormFields(sess.controller, r, false)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		sess.setAlert(uploadMissingAlert)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		sess.setAlert(formErrorAlert(err))
		return
	}

	notice, err := sess.controller.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	switch {
	case err != nil:
		s.requestLogger(r).LogError(err, "Upload failed", "file", header.Filename)
		sess.setAlert(resumetailorErrors.UserMessage(err))
	case notice != "":
		sess.setAlert(notice)
	}
}

func (s *Server) clearFileHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Get(w, r)
	if err := s.parseForm(r); err == nil {
		applyFormFields(sess.controller, r, false)
	}
	sess.controller.ClearFile()
	redirectHome(w, r)
}

// generateHandler runs a generation to completion before redirecting, so a
// reload of the page shows the outcome.
func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Get(w, r)
	defer redirectHome(w, r)

	if err := s.parseForm(r); err != nil {
		sess.setAlert(formErrorAlert(err))
		return
	}
	applyFormFields(sess.controller, r, true)

	err := sess.controller.Submit(r.Context())
	if err == nil {
		return
	}
	// Validation and busy rejections are alerts; every other failure is
	// already shown inline by the controller state.
	if resumetailorErrors.IsType(err, resumetailorErrors.ErrorTypeValidation) {
		sess.setAlert(resumetailorErrors.UserMessage(err))
	}
}

// capturedClipboard receives the copied text so it can be handed to the
// browser, which performs the actual clipboard write.
type capturedClipboard struct {
	text string
}

func (c *capturedClipboard) WriteText(_ context.Context, text string) error {
	c.text = text
	return nil
}

type copyResponse struct {
	Text         string `json:"text"`
	ResetAfterMs int64  `json:"resetAfterMs"`
}

func (s *Server) copyHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.Sessions.Lookup(r)
	if !ok {
		writeAppError(w, resumetailorErrors.NewValidationError(resumetailorErrors.ErrCodeNoResult, noResultAlert, nil))
		return
	}

	clip := &capturedClipboard{}
	if err := sess.controller.Copy(r.Context(), clip); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, copyResponse{
		Text:         clip.text,
		ResetAfterMs: app.CopyResetDelay.Milliseconds(),
	})
}

func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.Sessions.Lookup(r)
	if !ok {
		http.Error(w, noResultAlert, http.StatusNotFound)
		return
	}

	dl, err := sess.controller.Download()
	if err != nil {
		http.Error(w, resumetailorErrors.UserMessage(err), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
	w.Header().Set("Content-Length", fmt.Sprint(len(dl.Body)))
	_, _ = w.Write(dl.Body)
}

func formErrorAlert(err error) string {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return uploadTooLargeAlert
	}
	return "The form could not be read. Please try again."
}
