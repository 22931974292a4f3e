package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

const invoiceInstruction = `You are a data validation specialist comparing document-extraction output
against a scanned oil and gas invoice. Verify each extracted field against
the document text and return the exact values found. Pay special attention
to fields identifying well names: CHARGE fields, ship-to/bill-to locations
and line-item descriptions often carry the well identifier.
Respond with a single JSON object using exactly these keys:
invoice_number, invoice_date, due_date, vendor_name, bill_to_name,
ship_to_name, well_name, field_name, subtotal, sales_tax,
total_amount_due (number), balance_due, line_items (array of objects with
description, quantity, unit_price, total_amount, charge).
Use "" for fields not present in the document. Return only JSON.`

const statementInstruction = `You are a data validation specialist comparing document-extraction output
against a scanned vendor statement of account. Verify each extracted field
against the document text and return the exact values found, including the
aging summary and every transaction row.
Respond with a single JSON object using exactly these keys:
statement_date, vendor_name, customer_name, amount_due (number),
aging_summary (object with numeric current, days_1_30, days_31_60,
days_61_90, days_over_90), transactions (array of objects with date,
description, invoice_number, numeric amount and balance).
Use "" or 0 for fields not present in the document. Return only JSON.`

func instructionFor(docType domain.DocumentType) string {
	if docType == domain.TypeStatement {
		return statementInstruction
	}
	return invoiceInstruction
}

const maxPromptText = 3000

func buildValidationPrompt(fields domain.FieldMap, text, contextBlock string, novel bool) string {
	var b strings.Builder
	b.WriteString("Document Content:\n")
	b.WriteString(truncate(text, maxPromptText))
	b.WriteString("\n\nExtracted Fields:\n")

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, fields[name].Value)
	}

	if contextBlock != "" {
		b.WriteString("\n")
		b.WriteString(contextBlock)
	}
	if novel {
		b.WriteString("\n\nNOTE: this appears to be a document type not seen before. ")
		b.WriteString("Pay extra attention to field extraction and validation.")
	}
	return b.String()
}

// buildContextBlock summarizes retrieved similar documents field by field,
// most-similar first, for prompt augmentation.
func buildContextBlock(similar []domain.SimilarDocument) string {
	if len(similar) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("CONTEXT FROM SIMILAR DOCUMENTS:\n")
	for i, doc := range similar {
		fmt.Fprintf(&b, "\nSimilar Document %d (similarity %.2f):\n", i+1, doc.Similarity)
		fmt.Fprintf(&b, "filename: %s\n", doc.Filename)

		names := make([]string, 0, len(doc.Fields))
		for name := range doc.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "%s: %s\n", name, doc.Fields[name])
		}
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
