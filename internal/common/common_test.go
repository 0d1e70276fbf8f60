package common

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/types"
)

func newTestLogger() *errors.Logger {
	return errors.NewLoggerWithHandler(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectedError    string
	}{
		{name: "json", format: "json", supportedFormats: supported},
		{name: "markdown", format: "markdown", supportedFormats: supported},
		{
			name:             "xml",
			format:           "xml",
			supportedFormats: supported,
			expectedError:    "unsupported output format 'xml'. Supported formats: [json text markdown]",
		},
		{
			name:             "case sensitive",
			format:           "JSON",
			supportedFormats: supported,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json text markdown]",
		},
		{name: "no restrictions", format: "xml", supportedFormats: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedError)
		})
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := map[string]string{
		"md":        "markdown",
		" Markdown": "markdown",
		"TXT":       "text",
		"json":      "json",
		"":          "",
	}
	for in, want := range tests {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			assert.Equal(t, want, NormalizeFormat(in))
		})
	}
}

func TestFileProcessorReadInput(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	fp := NewFileProcessor(extract.New(1024, newTestLogger()), newTestLogger())

	t.Run("markdown is extracted", func(t *testing.T) {
		got, err := fp.ReadInput(write("resume.md", "\uFEFF# Jane"))
		require.NoError(t, err)
		assert.Equal(t, "# Jane", got)
	})

	t.Run("unknown extension is read as text", func(t *testing.T) {
		got, err := fp.ReadInput(write("job", "Go engineer"))
		require.NoError(t, err)
		assert.Equal(t, "Go engineer", got)
	})

	t.Run("whitespace file is empty", func(t *testing.T) {
		got, err := fp.ReadInput(write("blank.txt", " \n "))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := fp.ReadInput(filepath.Join(dir, "nope.txt"))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("too large", func(t *testing.T) {
		big := make([]byte, 2048)
		for i := range big {
			big[i] = 'a'
		}
		_, err := fp.ReadInput(write("big.txt", string(big)))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeFileTooLarge))
	})

	t.Run("empty paths are skipped", func(t *testing.T) {
		contents, err := fp.ValidateAndReadFiles(write("a.txt", "A"), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", ""}, contents)
	})
}

func TestOutputHandler(t *testing.T) {
	result := &types.TailorResult{TailoredResume: "Tailored"}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		oh := NewOutputHandler(newTestLogger())
		oh.stdout = &buf

		require.NoError(t, oh.HandleOutput(result, CommandConfig{OutputFormat: "text"}))
		assert.Equal(t, "Tailored\n", buf.String())
	})

	t.Run("file in a new directory", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "nested", "resume.md")
		oh := NewOutputHandler(newTestLogger())

		require.NoError(t, oh.HandleOutput(result, CommandConfig{OutputFile: out, OutputFormat: "markdown"}))
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "# Tailored Resume")
	})

	t.Run("unknown format", func(t *testing.T) {
		oh := NewOutputHandler(newTestLogger())
		err := oh.HandleOutput(result, CommandConfig{OutputFormat: "xml"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
	})

	assert.Equal(t, []string{"json", "markdown", "text"}, NewOutputHandler(nil).GetSupportedFormats())
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	job := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(resume, []byte("Jane"), 0600))
	require.NoError(t, os.WriteFile(job, []byte("Go"), 0600))
	out := filepath.Join(dir, "out.json")

	var logged bool
	err := RunCommand(context.Background(), newTestLogger(), extract.New(1024, nil),
		CommandConfig{OutputFile: out, OutputFormat: "json"},
		[]string{resume, job},
		func(contents []string) (types.ResumeRequest, error) {
			return types.ResumeRequest{OriginalResume: contents[0], JobDescription: contents[1]}, nil
		},
		func(_ context.Context, req types.ResumeRequest) (*types.TailorResult, *types.TokenUsage, error) {
			return &types.TailorResult{TailoredResume: req.OriginalResume + " for " + req.JobDescription},
				&types.TokenUsage{TotalTokens: 3}, nil
		},
		func(types.ResumeRequest, CommandConfig) { logged = true },
	)
	require.NoError(t, err)
	assert.True(t, logged)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tailoredResume": "Jane for Go"`)

	t.Run("operation error is returned", func(t *testing.T) {
		boom := fmt.Errorf("boom")
		err := RunCommand(context.Background(), nil, nil, CommandConfig{OutputFormat: "text"}, []string{resume},
			func(contents []string) (string, error) { return contents[0], nil },
			func(context.Context, string) (string, *types.TokenUsage, error) { return "", nil, boom },
			nil,
		)
		assert.ErrorIs(t, err, boom)
	})
}
