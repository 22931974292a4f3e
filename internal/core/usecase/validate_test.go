package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

func TestValidateInvoiceParsesModelResponse(t *testing.T) {
	model := &fakeModel{response: "Here is the validated record:\n" + `{
		"invoice_number": "INV-4411",
		"vendor_name": "Acme Oilfield Services",
		"well_name": "Smith 14-22H",
		"total_amount_due": 1204.50,
		"line_items": [{"description": "Hot oil treatment", "total_amount": "1204.50", "charge": "Smith 14-22H"}]
	}`}
	o := NewValidationOrchestrator(model)

	fields := domain.FieldMap{
		"invoice_number": {Value: "INV-4411", Confidence: 0.95},
		"vendor_name":    {Value: "Acme Oilfield Services", Confidence: 0.92},
	}

	rec, err := o.Validate(context.Background(), domain.TypeInvoice, fields, "invoice text", nil)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if rec.Invoice == nil {
		t.Fatal("Validate() returned no invoice record")
	}
	if rec.Invoice.InvoiceNumber != "INV-4411" {
		t.Fatalf("invoice_number = %q, want INV-4411", rec.Invoice.InvoiceNumber)
	}
	if rec.Invoice.TotalAmountDue != 1204.50 {
		t.Fatalf("total_amount_due = %v, want 1204.50", rec.Invoice.TotalAmountDue)
	}
	if len(rec.Invoice.LineItems) != 1 || rec.Invoice.LineItems[0].Charge != "Smith 14-22H" {
		t.Fatalf("line items = %+v", rec.Invoice.LineItems)
	}
	if model.instruction != invoiceInstruction {
		t.Fatal("wrong instruction sent for invoice")
	}
}

func TestValidateStatementParsesAgingAndTransactions(t *testing.T) {
	model := &fakeModel{response: `{
		"statement_date": "2025-05-31",
		"vendor_name": "Acme Oilfield Services",
		"amount_due": 25152.43,
		"aging_summary": {"current": 20000.00, "days_1_30": 5152.43},
		"transactions": [{"date": "2025-05-02", "invoice_number": "INV-100", "amount": 5152.43, "balance": 25152.43}]
	}`}
	o := NewValidationOrchestrator(model)

	rec, err := o.Validate(context.Background(), domain.TypeStatement, domain.FieldMap{}, "statement text", nil)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if rec.Statement == nil {
		t.Fatal("Validate() returned no statement record")
	}
	if got := rec.Statement.Aging.Total(); got != 25152.43 {
		t.Fatalf("aging total = %v, want 25152.43", got)
	}
	if len(rec.Statement.Transactions) != 1 || rec.Statement.Transactions[0].InvoiceNumber != "INV-100" {
		t.Fatalf("transactions = %+v", rec.Statement.Transactions)
	}
}

func TestValidateModelErrorPassesThrough(t *testing.T) {
	wantErr := errors.New("model unavailable")
	o := NewValidationOrchestrator(&fakeModel{err: wantErr})

	_, err := o.Validate(context.Background(), domain.TypeInvoice, domain.FieldMap{}, "", nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Validate() error = %v, want %v", err, wantErr)
	}
}

func TestValidateUnparseableResponse(t *testing.T) {
	o := NewValidationOrchestrator(&fakeModel{response: "I could not process this document."})

	_, err := o.Validate(context.Background(), domain.TypeInvoice, domain.FieldMap{}, "", nil)
	if !domain.IsKind(err, domain.ErrValidationParse) {
		t.Fatalf("Validate() error = %v, want %v kind", err, domain.ErrValidationParse)
	}
}

func TestValidateIncompleteSchemaRejected(t *testing.T) {
	o := NewValidationOrchestrator(&fakeModel{response: `{"subtotal": "10.00"}`})

	_, err := o.Validate(context.Background(), domain.TypeInvoice, domain.FieldMap{}, "", nil)
	if !domain.IsKind(err, domain.ErrValidationParse) {
		t.Fatalf("Validate() error = %v, want %v kind", err, domain.ErrValidationParse)
	}
}

func TestValidatePromptCarriesContextAndNovelNote(t *testing.T) {
	model := &fakeModel{response: `{"invoice_number": "INV-1", "vendor_name": "Acme"}`}
	o := NewValidationOrchestrator(model)

	similar := []domain.SimilarDocument{
		{
			Filename:   "acme_april.pdf",
			Similarity: 0.87,
			Fields:     map[string]string{"vendor_name": "Acme Oilfield Services"},
		},
	}
	if _, err := o.Validate(context.Background(), domain.TypeInvoice, domain.FieldMap{}, "text", similar); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.Contains(model.prompt, "CONTEXT FROM SIMILAR DOCUMENTS:") {
		t.Fatal("prompt missing context block")
	}
	if !strings.Contains(model.prompt, "acme_april.pdf") {
		t.Fatal("prompt missing similar document filename")
	}
	if strings.Contains(model.prompt, "not seen before") {
		t.Fatal("prompt should not carry the novel note when context exists")
	}

	if _, err := o.Validate(context.Background(), domain.TypeInvoice, domain.FieldMap{}, "text", nil); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.Contains(model.prompt, "not seen before") {
		t.Fatal("prompt missing novel note for empty retrieval")
	}
}
