package app

import (
	"context"
	"sync"
	"time"

	"resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/types"
)

const (
	// DownloadFileName is the attachment name of the tailored resume.
	DownloadFileName = "tailored-resume.txt"
	// DownloadContentType is the media type of the attachment.
	DownloadContentType = "text/plain;charset=utf-8"
	// CopyResetDelay is how long the copied indicator stays on.
	CopyResetDelay = 2000 * time.Millisecond
)

const (
	busyMessage       = "A request is already in progress. Please wait for it to finish."
	copyFailedMessage = "Failed to copy text. Please try again or copy manually."
	noResultMessage   = "There is no tailored resume yet. Generate one first."
)

// Clipboard receives the text of a copy request.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ExtractionRecorder is notified after every upload extraction.
type ExtractionRecorder interface {
	RecordExtraction(ctx context.Context, mediaType string, empty bool, err error)
}

// Download is a ready-to-send attachment.
type Download struct {
	FileName    string
	ContentType string
	Body        []byte
}

// State is a copy of the controller state for rendering.
type State struct {
	ResumeText     string
	JobDescription string
	CareerStart    string
	FileName       string
	Busy           bool
	Error          string
	Result         *types.TailorResult
	Copied         bool
}

// HasResult reports whether a tailored resume is available.
func (s State) HasResult() bool {
	return s.Result != nil && s.Result.TailoredResume != ""
}

// Controller owns the form state of one browser session. The busy flag
// admits at most one extraction or generation at a time.
type Controller struct {
	pipeline  *Pipeline
	extractor *extract.Extractor
	recorder  ExtractionRecorder
	copyReset time.Duration

	mu             sync.Mutex
	resumeText     string
	jobDescription string
	careerStart    string
	fileName       string
	busy           bool
	errMsg         string
	result         *types.TailorResult
	copied         bool
	copyTimers     map[uint64]*time.Timer // pending resets only
	nextTimer      uint64
}

// NewController returns an idle controller with empty fields.
func NewController(pipeline *Pipeline, extractor *extract.Extractor, recorder ExtractionRecorder) *Controller {
	return &Controller{
		pipeline:  pipeline,
		extractor: extractor,
		recorder:  recorder,
		copyReset: CopyResetDelay,
	}
}

func (c *Controller) SetResumeText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeText = text
}

func (c *Controller) SetJobDescription(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobDescription = text
}

func (c *Controller) SetCareerStart(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.careerStart = text
}

// ClearFile forgets the uploaded file and empties the resume field.
func (c *Controller) ClearFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fileName = ""
	c.resumeText = ""
}

// Upload extracts text from an uploaded file into the resume field. The
// returned notice is non-empty when the file held no text. An unsupported
// file type leaves every field as it was; any later failure clears the
// resume field and file name.
func (c *Controller) Upload(ctx context.Context, fileName, mediaType string, data []byte) (string, error) {
	if err := extract.CheckSupported(fileName, mediaType); err != nil {
		if c.recorder != nil {
			c.recorder.RecordExtraction(ctx, extract.ResolveMediaType(fileName, mediaType), false, err)
		}
		return "", err
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return "", busyError()
	}
	c.busy = true
	c.fileName = fileName
	c.resumeText = ""
	c.mu.Unlock()

	var (
		doc extract.Document
		err error
	)
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.busy = false
		if err != nil {
			c.fileName = ""
			c.resumeText = ""
			return
		}
		c.resumeText = doc.Text
	}()

	doc, err = c.extractor.Extract(fileName, mediaType, data)
	if c.recorder != nil {
		c.recorder.RecordExtraction(ctx, doc.MediaType, doc.Empty(), err)
	}
	if err != nil {
		return "", err
	}
	return doc.EmptyNotice(), nil
}

// Submit tailors the current resume to the current job description. A
// validation failure leaves state untouched and is returned for an alert.
// Every other failure is also stored as the inline error. The generation
// runs to completion even if ctx is cancelled.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return busyError()
	}

	req := types.ResumeRequest{
		OriginalResume: c.resumeText,
		JobDescription: c.jobDescription,
		CareerStart:    c.careerStart,
	}
	if err := c.pipeline.Prepare(req); err != nil {
		if !errors.HasCode(err, errors.ErrCodeValidation) {
			c.errMsg = errors.UserMessage(err)
			c.result = nil
		}
		c.mu.Unlock()
		return err
	}

	c.errMsg = ""
	c.result = nil
	c.copied = false
	c.busy = true
	c.mu.Unlock()

	var (
		result *types.TailorResult
		err    error
	)
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.busy = false
		if err != nil {
			c.errMsg = errors.UserMessage(err)
			return
		}
		c.result = result
	}()

	result, err = c.pipeline.Generate(context.WithoutCancel(ctx), req)
	if err != nil && c.pipeline.Logger != nil {
		c.pipeline.Logger.LogError(err, "Resume generation failed")
	}
	return err
}

// Copy hands the full tailored resume to clip. On success the copied flag
// is raised and cleared again after CopyResetDelay.
func (c *Controller) Copy(ctx context.Context, clip Clipboard) error {
	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeNoResult, noResultMessage, nil)
	}
	text := c.result.TailoredResume
	c.mu.Unlock()

	if err := clip.WriteText(ctx, text); err != nil {
		return errors.NewIOError(errors.ErrCodeClipboard, copyFailedMessage, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = true
	if c.copyTimers == nil {
		c.copyTimers = make(map[uint64]*time.Timer)
	}
	c.nextTimer++
	id := c.nextTimer
	// Each timer clears the flag unconditionally, even after a newer copy.
	c.copyTimers[id] = time.AfterFunc(c.copyReset, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.copyTimers, id)
		c.copied = false
	})
	return nil
}

// Download returns the tailored resume as a text attachment.
func (c *Controller) Download() (Download, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return Download{}, errors.NewValidationError(errors.ErrCodeNoResult, noResultMessage, nil)
	}
	return Download{
		FileName:    DownloadFileName,
		ContentType: DownloadContentType,
		Body:        []byte(c.result.TailoredResume),
	}, nil
}

// Busy reports whether an extraction or generation is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		ResumeText:     c.resumeText,
		JobDescription: c.jobDescription,
		CareerStart:    c.careerStart,
		FileName:       c.fileName,
		Busy:           c.busy,
		Error:          c.errMsg,
		Result:         c.result,
		Copied:         c.copied,
	}
}

// Close stops pending copy timers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.copyTimers {
		t.Stop()
	}
	c.copyTimers = nil
}

func busyError() error {
	return errors.NewValidationError(errors.ErrCodeBusy, busyMessage, nil)
}
