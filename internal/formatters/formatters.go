// Package formatters renders command results as text, markdown or JSON.
package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"resumetailor/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

const anyType = "any"

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", &JSONFormatter{})
	registry.RegisterFormatter("text", &TailorTextFormatter{})
	registry.RegisterFormatter("markdown", &TailorMarkdownFormatter{})
	registry.RegisterFormatter("text", &ExtractTextFormatter{})
	registry.RegisterFormatter("markdown", &ExtractMarkdownFormatter{})
	registry.RegisterFormatter("text", &PromptTextFormatter{})
	registry.RegisterFormatter("markdown", &PromptMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers formatter for format and the data type it
// reports.
func (fr *FormatterRegistry) RegisterFormatter(format string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][formatter.SupportedType()] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[anyType]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted.
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.TailorResult:
		return "TailorResult"
	case types.ExtractResult:
		return "ExtractResult"
	case types.PromptPreview:
		return "PromptPreview"
	default:
		return anyType
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return anyType
}

// TailorTextFormatter prints the tailored resume exactly as the download
// carries it, so the output can be redirected into a file.
type TailorTextFormatter struct{}

func (ttf *TailorTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.TailorResult)
	if !ok || result == nil {
		return "", fmt.Errorf("expected *TailorResult, got %T", data)
	}
	return ensureNewline(result.TailoredResume), nil
}

func (ttf *TailorTextFormatter) SupportedType() string {
	return "TailorResult"
}

// TailorMarkdownFormatter handles markdown formatting for tailor results
type TailorMarkdownFormatter struct{}

func (tmf *TailorMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.TailorResult)
	if !ok || result == nil {
		return "", fmt.Errorf("expected *TailorResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Tailored Resume\n\n")
	output.WriteString(ensureNewline(result.TailoredResume))
	output.WriteString("\n---\n\n")

	if result.Model != "" {
		fmt.Fprintf(&output, "- **Model:** %s\n", result.Model)
	}
	if result.ExperienceYears != nil {
		fmt.Fprintf(&output, "- **Estimated experience:** %d years\n", *result.ExperienceYears)
	}
	if result.Usage != nil {
		fmt.Fprintf(&output, "- **Tokens:** %d prompt, %d output, %d total\n",
			result.Usage.PromptTokens, result.Usage.CandidatesTokens, result.Usage.TotalTokens)
	}
	output.WriteString("\n_AI-generated content. Review and edit before sending it to an employer._\n")

	return output.String(), nil
}

func (tmf *TailorMarkdownFormatter) SupportedType() string {
	return "TailorResult"
}

// ExtractTextFormatter prints the extracted text, or the empty notice.
type ExtractTextFormatter struct{}

func (etf *ExtractTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ExtractResult)
	if !ok {
		return "", fmt.Errorf("expected ExtractResult, got %T", data)
	}
	if result.Empty {
		return ensureNewline(result.Notice), nil
	}
	return ensureNewline(result.Text), nil
}

func (etf *ExtractTextFormatter) SupportedType() string {
	return "ExtractResult"
}

// ExtractMarkdownFormatter handles markdown formatting for extraction results
type ExtractMarkdownFormatter struct{}

func (emf *ExtractMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ExtractResult)
	if !ok {
		return "", fmt.Errorf("expected ExtractResult, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Extracted Text: %s\n\n", result.FileName)
	fmt.Fprintf(&output, "**Media type:** %s\n\n", result.MediaType)
	if result.Empty {
		fmt.Fprintf(&output, "> %s\n", result.Notice)
		return output.String(), nil
	}
	writeFence(&output, result.Text)
	return output.String(), nil
}

func (emf *ExtractMarkdownFormatter) SupportedType() string {
	return "ExtractResult"
}

// PromptTextFormatter prints the rendered prompt verbatim.
type PromptTextFormatter struct{}

func (ptf *PromptTextFormatter) Format(data any) (string, error) {
	preview, ok := data.(types.PromptPreview)
	if !ok {
		return "", fmt.Errorf("expected PromptPreview, got %T", data)
	}
	return ensureNewline(preview.Prompt), nil
}

func (ptf *PromptTextFormatter) SupportedType() string {
	return "PromptPreview"
}

// PromptMarkdownFormatter handles markdown formatting for prompt previews
type PromptMarkdownFormatter struct{}

func (pmf *PromptMarkdownFormatter) Format(data any) (string, error) {
	preview, ok := data.(types.PromptPreview)
	if !ok {
		return "", fmt.Errorf("expected PromptPreview, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Prompt Preview\n\n")
	fmt.Fprintf(&output, "- **Characters:** %d\n", preview.Characters)
	if preview.ExperienceYears != nil {
		fmt.Fprintf(&output, "- **Estimated experience:** %d years\n", *preview.ExperienceYears)
	} else {
		output.WriteString("- **Estimated experience:** not stated\n")
	}
	output.WriteString("\n")
	writeFence(&output, preview.Prompt)
	return output.String(), nil
}

func (pmf *PromptMarkdownFormatter) SupportedType() string {
	return "PromptPreview"
}

// writeFence wraps content in a fence longer than any backtick run inside it.
func writeFence(b *strings.Builder, content string) {
	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}
	b.WriteString(fence)
	b.WriteString("\n")
	b.WriteString(ensureNewline(content))
	b.WriteString(fence)
	b.WriteString("\n")
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
