// Package extract turns uploaded resume files into plain text.
package extract

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"resumetailor/internal/errors"
	"resumetailor/internal/utils"
)

// Supported media types. text/x-markdown is folded into MediaTypeMarkdown.
const (
	MediaTypePlainText = "text/plain"
	MediaTypeMarkdown  = "text/markdown"
	MediaTypePDF       = "application/pdf"
)

// AcceptedExtensions is the value of the upload control's accept attribute.
const AcceptedExtensions = ".txt,.md,.pdf"

const (
	msgUnsupportedType = "Unsupported file type. Please upload a .pdf, .txt, or .md file."
	msgTextReadFailed  = "Error reading file. Please ensure it's a valid .txt or .md file."
)

// Document is the plain text extracted from one upload. Text is empty when
// nothing usable was found.
type Document struct {
	Text           string
	SourceFileName string
	MediaType      string
}

// Empty reports whether extraction produced no usable text.
func (d Document) Empty() bool {
	return strings.TrimSpace(d.Text) == ""
}

// EmptyNotice is the warning shown when a file decoded fine but held no text.
func (d Document) EmptyNotice() string {
	if !d.Empty() {
		return ""
	}
	if d.MediaType == MediaTypePDF {
		return fmt.Sprintf("The file %q (PDF) was processed, but no text content could be extracted. "+
			"It might contain images of text, be empty, or have an unsupported format for text extraction. "+
			"The resume field is empty.", d.SourceFileName)
	}
	return fmt.Sprintf("The file %q was processed, but it appears to be empty or contains only whitespace. "+
		"The resume field is empty. Please try a different file or paste text manually.", d.SourceFileName)
}

// Extractor decodes text, markdown and PDF uploads.
type Extractor struct {
	maxSize int64
	logger  *errors.Logger
}

// New returns an Extractor. A maxSize of zero disables the size check.
func New(maxSize int64, logger *errors.Logger) *Extractor {
	return &Extractor{maxSize: maxSize, logger: logger}
}

// Extract decodes data according to its media type. Empty content is not an
// error: the returned Document reports Empty and carries an EmptyNotice. On
// error the returned Document never carries text.
func (e *Extractor) Extract(fileName, mediaType string, data []byte) (Document, error) {
	doc := Document{
		SourceFileName: fileName,
		MediaType:      ResolveMediaType(fileName, mediaType),
	}

	if err := CheckSupported(fileName, mediaType); err != nil {
		return doc, err
	}

	if e.maxSize > 0 && int64(len(data)) > e.maxSize {
		return doc, e.tooLarge(fileName, int64(len(data)))
	}

	var (
		text string
		err  error
	)
	switch doc.MediaType {
	case MediaTypePDF:
		text, err = extractPDFText(data)
	default:
		text = decodeText(data)
	}
	if err != nil {
		if e.logger != nil {
			e.logger.LogError(err, "Document extraction failed", "file_name", fileName, "media_type", doc.MediaType)
		}
		return doc, err
	}

	if strings.TrimSpace(text) != "" {
		doc.Text = text
	}

	if e.logger != nil {
		e.logger.Debug("Document extracted",
			"file_name", fileName,
			"media_type", doc.MediaType,
			"size", utils.FormatFileSize(int64(len(data))),
			"chars", utf8.RuneCountInString(doc.Text),
			"empty", doc.Empty())
	}

	return doc, nil
}

// ExtractReader reads r (bounded by the size limit) and extracts it.
func (e *Extractor) ExtractReader(fileName, mediaType string, r io.Reader) (Document, error) {
	resolved := ResolveMediaType(fileName, mediaType)
	if !IsSupportedMediaType(resolved) {
		return e.Extract(fileName, mediaType, nil)
	}

	src := r
	if e.maxSize > 0 {
		src = io.LimitReader(r, e.maxSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		doc := Document{SourceFileName: fileName, MediaType: resolved}
		if resolved == MediaTypePDF {
			return doc, errors.NewExtractionError(errors.ErrCodePDFParseFailed, msgPDFParseFailed+pdfHint, err)
		}
		return doc, errors.NewExtractionError(errors.ErrCodeFileReadFailed, msgTextReadFailed, err)
	}

	return e.Extract(fileName, mediaType, data)
}

// ExtractFile extracts a file from disk, deciding the media type by extension.
func (e *Extractor) ExtractFile(path string) (Document, error) {
	if err := utils.ValidateInputFile(path); err != nil {
		return Document{SourceFileName: filepath.Base(path)}, errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("Invalid file %s", path), err)
	}

	file, err := os.Open(path)
	if err != nil {
		return Document{SourceFileName: filepath.Base(path)}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}
	defer func() {
		if err := file.Close(); err != nil && e.logger != nil {
			e.logger.Warn("Failed to close file", "filename", path, "error", err)
		}
	}()

	return e.ExtractReader(filepath.Base(path), "", file)
}

func (e *Extractor) tooLarge(fileName string, size int64) error {
	return errors.NewValidationError(errors.ErrCodeFileTooLarge,
		fmt.Sprintf("The file %q is too large (%s). The maximum size is %s.",
			fileName, utils.FormatFileSize(size), utils.FormatFileSize(e.maxSize)), nil)
}

// ResolveMediaType normalises a declared media type. Parameters are dropped
// and an empty or generic binary type falls back to the file extension.
func ResolveMediaType(fileName, declared string) string {
	mediaType := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	} else if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}

	switch mediaType {
	case "text/x-markdown":
		return MediaTypeMarkdown
	case "", "application/octet-stream", "binary/octet-stream":
		return MediaTypeForFileName(fileName)
	}
	return mediaType
}

// MediaTypeForFileName maps a supported extension to its media type, or
// returns "" for anything else.
func MediaTypeForFileName(fileName string) string {
	switch utils.GetFileExtension(fileName) {
	case ".txt", ".text":
		return MediaTypePlainText
	case ".md", ".markdown":
		return MediaTypeMarkdown
	case ".pdf":
		return MediaTypePDF
	default:
		return ""
	}
}

// CheckSupported returns an UNSUPPORTED_FILE_TYPE error unless the file can
// be extracted. It only looks at the name and the declared type.
func CheckSupported(fileName, mediaType string) error {
	if IsSupportedMediaType(ResolveMediaType(fileName, mediaType)) {
		return nil
	}
	return errors.NewExtractionError(errors.ErrCodeUnsupportedFileType, msgUnsupportedType, nil).
		WithContext("media_type", mediaType).
		WithContext("file_name", fileName)
}

// IsSupportedMediaType reports whether mediaType (already resolved) can be
// extracted.
func IsSupportedMediaType(mediaType string) bool {
	switch mediaType {
	case MediaTypePlainText, MediaTypeMarkdown, MediaTypePDF:
		return true
	default:
		return false
	}
}

func decodeText(data []byte) string {
	text := strings.TrimPrefix(string(data), "\uFEFF")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	return text
}
