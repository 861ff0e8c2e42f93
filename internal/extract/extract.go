// Package extract turns uploaded file bytes into plain text for chunking.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/ledongthuc/pdf"
)

// Extractor dispatches on content type. Text formats pass through with
// normalized line endings; PDF pages are joined with form feeds so chunk
// page numbers can be recovered from offsets.
type Extractor struct{}

// NewExtractor creates a new Extractor instance
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of the file
func (e *Extractor) Extract(data []byte, contentType string) (string, error) {
	switch contentType {
	case "text/plain", "text/csv", "text/markdown":
		return normalizeText(string(data)), nil
	case "application/pdf":
		return extractPDF(data)
	default:
		return "", domain.ErrUnsupportedFileType
	}
}

// extractPDF extracts the text of each page, joining pages with a form feed
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		pages = append(pages, normalizeText(text))
	}

	joined := strings.TrimSpace(strings.Join(pages, "\f"))
	if strings.Trim(joined, "\f \t\n") == "" {
		return "", domain.ErrEmptyDocument
	}
	return joined, nil
}

// normalizeText converts CRLF line endings and strips trailing whitespace
// from each line
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
