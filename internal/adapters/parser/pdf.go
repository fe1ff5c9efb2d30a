// Package parser provides document content parsers.
// Clean Architecture: adapters implementing ports.DocumentParser.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts plain text from PDF data, page by page.
type PDFParser struct{}

// NewPDFParser creates a new PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse extracts text from PDF bytes.
func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unextractable pages rather than failing the document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", fmt.Errorf("no extractable text in %s", filename)
	}
	return result, nil
}

// SupportedFormats returns the formats this parser handles.
func (p *PDFParser) SupportedFormats() []string {
	return []string{".pdf"}
}
