package ingest

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/caldermed/triage/internal/domain"
)

// PageText is the extracted text of one document page. Page numbers are
// 1-based and preserved through chunking so citations can point back into
// the source document.
type PageText struct {
	Page int
	Text string
}

// DocumentParser extracts per-page text from a raw document.
type DocumentParser interface {
	Parse(data []byte) ([]PageText, error)
}

// PDFParser extracts plain text from PDF bytes page by page. A document
// that cannot be opened at all is a fatal parse failure; individual pages
// that fail extraction are skipped.
type PDFParser struct{}

func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

func (p *PDFParser) Parse(data []byte) ([]PageText, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrDocumentParse)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentParse, err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrDocumentParse)
	}

	pages := make([]PageText, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("Failed to extract text from page %d: %v", i, err)
			continue
		}

		text = normalizeText(text)
		if text == "" {
			continue
		}

		pages = append(pages, PageText{Page: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", domain.ErrDocumentParse)
	}

	return pages, nil
}

// normalizeText collapses runs of whitespace while keeping paragraph
// breaks, so chunk boundaries land on word boundaries rather than layout
// artifacts.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
