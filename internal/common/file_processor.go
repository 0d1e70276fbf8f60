package common

import (
	"fmt"
	"io"
	"os"

	"resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/utils"
)

// FileProcessor reads command inputs and writes command outputs.
type FileProcessor struct {
	extractor *extract.Extractor
	logger    *errors.Logger
}

// NewFileProcessor creates a file processor. Inputs with a resume extension
// go through extractor; a nil extractor reads everything as plain text.
func NewFileProcessor(extractor *extract.Extractor, logger *errors.Logger) *FileProcessor {
	return &FileProcessor{extractor: extractor, logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return string(content), nil
}

// ReadInput returns the text of one input file. PDF, text and markdown
// files are extracted; anything else is read as-is with a warning.
func (fp *FileProcessor) ReadInput(filename string) (string, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	if fp.extractor == nil || !utils.IsSupportedUpload(filename) {
		fp.warn(fmt.Sprintf("%s is not a .txt, .md or .pdf file, reading it as plain text", filename), filename)
		return fp.ReadFile(filename)
	}

	doc, err := fp.extractor.ExtractFile(filename)
	if err != nil {
		return "", err
	}
	if doc.Empty() {
		fp.warn(doc.EmptyNotice(), filename)
	}
	return doc.Text, nil
}

func (fp *FileProcessor) warn(message, filename string) {
	if fp.logger != nil {
		fp.logger.Warn(message, "filename", filename)
		return
	}
	fmt.Fprintf(os.Stderr, "Warning: %s\n", message)
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.EnsureOutputDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory for %s", filename), err)
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// ValidateAndReadFiles reads every input file, empty paths included as
// empty content.
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))
	for i, filename := range filenames {
		if filename == "" {
			continue
		}
		content, err := fp.ReadInput(filename)
		if err != nil {
			return nil, err
		}
		contents[i] = content
	}
	return contents, nil
}
