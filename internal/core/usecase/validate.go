package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/luckylad/invoiceflow/internal/core/domain"
	"github.com/luckylad/invoiceflow/internal/core/ports"
)

// ValidationOrchestrator turns raw extraction plus retrieval context into
// a canonical standardized record via one generative-model call. It is a
// pure transform: it never touches the similarity index or review state.
type ValidationOrchestrator struct {
	model ports.ValidationModel
}

func NewValidationOrchestrator(model ports.ValidationModel) *ValidationOrchestrator {
	return &ValidationOrchestrator{model: model}
}

// Validate returns the standardized record and whether validation
// succeeded. An unreachable model, unparseable response or
// schema-incomplete payload yields (nil, false, err): the caller treats
// that as a LOW-confidence override forcing review, never a fatal error.
func (o *ValidationOrchestrator) Validate(
	ctx context.Context,
	docType domain.DocumentType,
	fields domain.FieldMap,
	text string,
	similar []domain.SimilarDocument,
) (*domain.StandardizedRecord, error) {
	prompt := buildValidationPrompt(fields, text, buildContextBlock(similar), len(similar) == 0)

	raw, err := o.model.GenerateJSON(ctx, instructionFor(docType), prompt)
	if err != nil {
		return nil, err
	}

	rec, err := parseStandardizedRecord(docType, raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrValidationParse, "parse validation response", err)
	}
	return rec, nil
}

func parseStandardizedRecord(docType domain.DocumentType, raw string) (*domain.StandardizedRecord, error) {
	payload := extractJSONObject(raw)

	if docType == domain.TypeStatement {
		var st domain.StatementRecord
		if err := json.Unmarshal([]byte(payload), &st); err != nil {
			return nil, err
		}
		if st.VendorName == "" && st.StatementDate == "" {
			return nil, errors.New("statement schema incomplete")
		}
		return &domain.StandardizedRecord{Type: docType, Statement: &st}, nil
	}

	var inv domain.InvoiceRecord
	if err := json.Unmarshal([]byte(payload), &inv); err != nil {
		return nil, err
	}
	if inv.VendorName == "" && inv.InvoiceNumber == "" {
		return nil, errors.New("invoice schema incomplete")
	}
	return &domain.StandardizedRecord{Type: docType, Invoice: &inv}, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
