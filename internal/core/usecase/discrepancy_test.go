package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

func newTestChecker(w *fakeWarehouse) *DiscrepancyChecker {
	c := NewDiscrepancyChecker(w, 1.00, 90*24*time.Hour)
	c.nowFn = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCheckAgingMismatchBeyondTolerance(t *testing.T) {
	w := &fakeWarehouse{known: map[string]bool{}}
	c := newTestChecker(w)

	rec := &domain.StatementRecord{
		StatementDate: "2025-05-31",
		VendorName:    "Acme Oilfield Services",
		AmountDue:     25152.43,
		Aging: domain.AgingSummary{
			Current:   20000.00,
			Days1To30: 4000.00,
		},
	}

	findings := c.Check(context.Background(), rec)
	if len(findings) != 1 {
		t.Fatalf("Check() findings = %v, want exactly one", findings)
	}
	if !strings.Contains(findings[0], "24000.00") || !strings.Contains(findings[0], "25152.43") {
		t.Fatalf("finding missing amounts: %q", findings[0])
	}
}

func TestCheckAgingWithinToleranceIsClean(t *testing.T) {
	w := &fakeWarehouse{known: map[string]bool{}}
	c := newTestChecker(w)

	rec := &domain.StatementRecord{
		AmountDue: 100.50,
		Aging:     domain.AgingSummary{Current: 100.00, Days1To30: 0.75},
	}

	if findings := c.Check(context.Background(), rec); len(findings) != 0 {
		t.Fatalf("Check() findings = %v, want none", findings)
	}
}

func TestCheckUnknownInvoiceReference(t *testing.T) {
	w := &fakeWarehouse{known: map[string]bool{"INV-100": true}}
	c := newTestChecker(w)

	rec := &domain.StatementRecord{
		AmountDue: 300.00,
		Aging:     domain.AgingSummary{Current: 300.00},
		Transactions: []domain.StatementTransaction{
			{InvoiceNumber: "INV-100", Amount: 100.00},
			{InvoiceNumber: "INV-999", Amount: 200.00},
			{Description: "payment received", Amount: -50.00}, // no invoice ref
		},
	}

	findings := c.Check(context.Background(), rec)
	if len(findings) != 1 {
		t.Fatalf("Check() findings = %v, want exactly one", findings)
	}
	if !strings.Contains(findings[0], "INV-999") {
		t.Fatalf("finding should name the unknown invoice: %q", findings[0])
	}
}

func TestCheckWarehouseOutageDegrades(t *testing.T) {
	w := &fakeWarehouse{lookupErr: errors.New("connection refused")}
	c := newTestChecker(w)

	rec := &domain.StatementRecord{
		AmountDue: 100.00,
		Aging:     domain.AgingSummary{Current: 100.00},
		Transactions: []domain.StatementTransaction{
			{InvoiceNumber: "INV-1", Amount: 100.00},
		},
	}

	if findings := c.Check(context.Background(), rec); len(findings) != 0 {
		t.Fatalf("Check() findings = %v, want none on warehouse outage", findings)
	}
}

func TestCheckNilRecord(t *testing.T) {
	c := newTestChecker(&fakeWarehouse{})
	if findings := c.Check(context.Background(), nil); findings != nil {
		t.Fatalf("Check(nil) = %v, want nil", findings)
	}
}
