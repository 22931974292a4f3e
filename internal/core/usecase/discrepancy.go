package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
	"github.com/luckylad/invoiceflow/internal/core/ports"
)

// DiscrepancyChecker cross-validates vendor statements: the declared
// aging buckets must sum to the declared amount due within a configured
// tolerance, and every transaction that references an invoice number must
// match an invoice accepted within the lookback window.
type DiscrepancyChecker struct {
	warehouse ports.Warehouse
	tolerance float64
	lookback  time.Duration
	nowFn     func() time.Time
}

func NewDiscrepancyChecker(warehouse ports.Warehouse, tolerance float64, lookback time.Duration) *DiscrepancyChecker {
	return &DiscrepancyChecker{
		warehouse: warehouse,
		tolerance: tolerance,
		lookback:  lookback,
		nowFn:     time.Now,
	}
}

// Check returns human-readable findings; an empty slice means the
// statement is internally consistent. A warehouse outage during the
// reference check degrades to skipping that check rather than blocking
// the document.
func (c *DiscrepancyChecker) Check(ctx context.Context, rec *domain.StatementRecord) []string {
	if rec == nil {
		return nil
	}

	var findings []string

	agingTotal := rec.Aging.Total()
	if diff := math.Abs(agingTotal - rec.AmountDue); diff > c.tolerance {
		findings = append(findings, fmt.Sprintf(
			"aging buckets sum to %.2f but declared amount due is %.2f (tolerance %.2f)",
			agingTotal, rec.AmountDue, c.tolerance,
		))
	}

	since := c.nowFn().Add(-c.lookback)
	for _, tx := range rec.Transactions {
		number := strings.TrimSpace(tx.InvoiceNumber)
		if number == "" {
			continue
		}
		known, err := c.warehouse.HasInvoiceNumber(ctx, number, since)
		if err != nil {
			slog.Warn("invoice reference check unavailable", "invoice_number", number, "error", err)
			continue
		}
		if !known {
			findings = append(findings, fmt.Sprintf(
				"transaction references invoice %s not accepted within lookback window", number,
			))
		}
	}

	return findings
}
