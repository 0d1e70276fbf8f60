package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	appErr := NewExtractionError(ErrCodePDFInvalid, "Invalid or corrupted PDF file.", cause)
	wrapped := fmt.Errorf("upload: %w", appErr)

	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
	assert.True(t, HasCode(wrapped, ErrCodePDFInvalid))
	assert.False(t, HasCode(wrapped, ErrCodePDFNotPDF))
	assert.True(t, IsType(wrapped, ErrorTypeExtraction))
	assert.Equal(t, "Invalid or corrupted PDF file.", UserMessage(wrapped))
	assert.Contains(t, appErr.Error(), "caused by")
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", fmt.Errorf("boom"), "boom"},
		{"app error", NewConfigError(ErrCodeMissingAPIKey, "no key", nil), "no key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		logger, err := New(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}

	_, err := New("verbose")
	assert.Error(t, err)
}

func TestLogErrorIncludesAppErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithHandler(slog.NewJSONHandler(&buf, nil))

	appErr := NewAIError(ErrCodeAIEmptyResponse, "Received an empty response from the AI.", nil).
		WithContext("model", "gemini-test")
	logger.LogError(appErr, "generation failed", "request_id", "abc")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "generation failed", record["msg"])
	assert.Equal(t, ErrCodeAIEmptyResponse, record["error_code"])
	assert.Equal(t, "ai", record["error_type"])
	assert.Equal(t, "gemini-test", record["model"])
	assert.Equal(t, "abc", record["request_id"])
}
