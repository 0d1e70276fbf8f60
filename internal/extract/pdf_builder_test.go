package extract

import (
	"bytes"
	"fmt"
	"strings"
)

// testPDF assembles a minimal PDF 1.4 file with a classic xref table. Each
// page shows its runs with one Tj per line using Helvetica/WinAnsi.
type testPDF struct {
	pages   [][]string
	rawPage []string
	encrypt bool
}

func (tp testPDF) bytes() []byte {
	var objects []string

	pageCount := len(tp.pages) + len(tp.rawPage)
	// 1 catalog, 2 pages, 3 font, then page/content pairs.
	kids := make([]string, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+i*2))
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)

	streams := make([]string, 0, pageCount)
	for _, runs := range tp.pages {
		var content strings.Builder
		content.WriteString("BT\n/F1 12 Tf\n")
		for i, run := range runs {
			fmt.Fprintf(&content, "1 0 0 1 72 %d Tm\n(%s) Tj\n", 720-i*14, escapePDFString(run))
		}
		content.WriteString("ET")
		streams = append(streams, content.String())
	}
	streams = append(streams, tp.rawPage...)

	for i, stream := range streams {
		contentRef := 5 + i*2
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentRef),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}

	trailer := fmt.Sprintf("<< /Size %d /Root 1 0 R", len(objects)+1)
	if tp.encrypt {
		trailer += " /Encrypt << /Filter /Standard /V 2 /R 3 /Length 128 /P -4" +
			" /O <" + strings.Repeat("ab", 32) + ">" +
			" /U <" + strings.Repeat("cd", 32) + "> >>" +
			" /ID [<" + strings.Repeat("01", 16) + "> <" + strings.Repeat("01", 16) + ">]"
	}
	trailer += " >>"

	fmt.Fprintf(&buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer, xrefStart)
	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
