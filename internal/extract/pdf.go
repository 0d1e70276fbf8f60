package extract

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"resumetailor/internal/errors"
)

const pdfHint = " Please try a different PDF or a .txt/.md file."

const (
	msgPDFPasswordProtected = "The PDF file is password-protected and cannot be opened."
	msgPDFInvalid           = "Invalid or corrupted PDF file."
	msgPDFNotPDF            = "The provided file does not appear to be a valid PDF."
	msgPDFParseFailed       = "Error parsing PDF. The file might be corrupted or in an unsupported PDF format."
)

// rawEncoding passes bytes through for runs shown without a known font.
type rawEncoding struct{}

func (rawEncoding) Decode(raw string) string { return raw }

// extractPDFText walks every page in order. Each text run is followed by a
// single space and each page by a newline; the result is trimmed.
func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = classifyPDFError(fmt.Errorf("pdf reader panic: %v", r))
		}
	}()

	reader, err := openPDF(data)
	if err != nil {
		return "", classifyPDFError(err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		runs, err := pageTextRuns(reader.Page(i))
		if err != nil {
			return "", classifyPDFError(fmt.Errorf("page %d: %w", i, err))
		}
		for _, run := range runs {
			b.WriteString(run)
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}

	return strings.TrimSpace(b.String()), nil
}

func openPDF(data []byte) (*pdf.Reader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("not a PDF file: empty input")
	}
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageTextRuns returns the page's shown strings in content stream order,
// decoded through the page fonts. A TJ array counts as one run. Empty runs
// are dropped.
func pageTextRuns(page pdf.Page) (runs []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			runs = nil
			err = fmt.Errorf("content stream: %v", r)
		}
	}()

	if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
		return nil, nil
	}

	encoders := make(map[string]pdf.TextEncoding)
	for _, name := range page.Fonts() {
		encoders[name] = page.Font(name).Encoder()
	}

	var enc pdf.TextEncoding = rawEncoding{}
	show := func(s string) {
		if s != "" {
			runs = append(runs, s)
		}
	}

	pdf.Interpret(page.V.Key("Contents"), func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "Tf":
			if len(args) != 2 {
				return
			}
			if e, ok := encoders[args[0].Name()]; ok {
				enc = e
			} else {
				enc = rawEncoding{}
			}
		case "Tj", "'", "\"":
			if len(args) == 0 {
				return
			}
			show(enc.Decode(args[len(args)-1].RawString()))
		case "TJ":
			if len(args) != 1 {
				return
			}
			var sb strings.Builder
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				if item := arr.Index(i); item.Kind() == pdf.String {
					sb.WriteString(enc.Decode(item.RawString()))
				}
			}
			show(sb.String())
		}
	})

	return runs, nil
}

// classifyPDFError maps reader failures onto the four user-facing classes.
func classifyPDFError(err error) error {
	msg := strings.ToLower(err.Error())

	var code, message string
	switch {
	case stderrors.Is(err, pdf.ErrInvalidPassword),
		strings.Contains(msg, "encrypt"),
		strings.Contains(msg, "password"):
		code, message = errors.ErrCodePDFPasswordProtected, msgPDFPasswordProtected
	case strings.Contains(msg, "not a pdf file: invalid header"),
		strings.Contains(msg, "not a pdf file: empty input"):
		code, message = errors.ErrCodePDFNotPDF, msgPDFNotPDF
	case strings.Contains(msg, "malformed"),
		strings.Contains(msg, "missing %%eof"):
		code, message = errors.ErrCodePDFInvalid, msgPDFInvalid
	default:
		code, message = errors.ErrCodePDFParseFailed, msgPDFParseFailed
	}

	return errors.NewExtractionError(code, message+pdfHint, err)
}
