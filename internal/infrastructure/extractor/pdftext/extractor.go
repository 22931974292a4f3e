package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls raw text out of PDF bytes for indicator classification
// and embeddings. Extraction is local; scanned image-only documents
// yield empty text, which the pipeline tolerates.
type Extractor struct {
	maxPages int
}

func New() *Extractor {
	return &Extractor{maxPages: 20}
}

func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	totalPages := reader.NumPage()
	if totalPages > e.maxPages {
		totalPages = e.maxPages
	}

	var b strings.Builder
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d text: %w", pageIndex, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String()), nil
}
