package usecase

import (
	"strings"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

// Classifier decides the document type from filename and extracted text.
// Filename evidence is authoritative and short-circuits the text scan;
// absent any indicator the type defaults to invoice.
type Classifier struct {
	indicators []string
}

func NewClassifier(indicators []string) *Classifier {
	lowered := make([]string, 0, len(indicators))
	for _, p := range indicators {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Classifier{indicators: lowered}
}

func (c *Classifier) Classify(filename, text string) domain.DocumentType {
	if strings.Contains(strings.ToLower(filename), "statement") {
		return domain.TypeStatement
	}

	lowered := strings.ToLower(text)
	distinct := 0
	for _, phrase := range c.indicators {
		if strings.Contains(lowered, phrase) {
			distinct++
			if distinct >= 2 {
				return domain.TypeStatement
			}
		}
	}
	return domain.TypeInvoice
}
