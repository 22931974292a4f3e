package xlsx

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

const auditSheet = "Review Audit"

var auditHeaders = []string{
	"Review Item",
	"Document",
	"Type",
	"Status",
	"Reasons",
	"Extracted Fields",
	"Corrected Fields",
	"Created At",
	"Reviewed At",
	"Submitted At",
}

// WriteAuditReport renders the review queue history as a spreadsheet for
// the accounting team. One row per review item, correction history
// included.
func WriteAuditReport(w io.Writer, items []domain.ReviewItem) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(auditSheet)
	if err != nil {
		return fmt.Errorf("create audit sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, header := range auditHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(auditSheet, cell, header); err != nil {
			return fmt.Errorf("write header %q: %w", header, err)
		}
	}

	for rowIdx, item := range items {
		values := []any{
			item.ID,
			item.DocumentID,
			string(item.Type),
			string(item.Status),
			joinReasons(item.Reasons),
			formatFields(item.ExtractedFields.Values()),
			formatFields(item.CorrectedFields),
			formatTime(&item.CreatedAt),
			formatTime(item.ReviewedAt),
			formatTime(item.SubmittedAt),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("row cell name: %w", err)
			}
			if err := f.SetCellValue(auditSheet, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", rowIdx+2, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func joinReasons(reasons []domain.ReviewReason) string {
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, fields[name]))
	}
	return strings.Join(parts, "; ")
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
