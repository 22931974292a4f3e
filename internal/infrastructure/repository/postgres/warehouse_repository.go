package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

// WarehouseRepository writes standardized records into the relational
// warehouse consumed by downstream accounting tooling.
type WarehouseRepository struct {
	db       *sql.DB
	lookback time.Duration
}

func NewWarehouseRepository(db *sql.DB, lookback time.Duration) *WarehouseRepository {
	return &WarehouseRepository{db: db, lookback: lookback}
}

func (r *WarehouseRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090103)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS invoice_headers (
	id BIGSERIAL PRIMARY KEY,
	document_id TEXT NOT NULL,
	invoice_number TEXT NOT NULL,
	invoice_date TEXT,
	due_date TEXT,
	vendor_name TEXT,
	bill_to_name TEXT,
	ship_to_name TEXT,
	well_name TEXT,
	field_name TEXT,
	subtotal TEXT,
	sales_tax TEXT,
	total_amount_due DOUBLE PRECISION NOT NULL DEFAULT 0,
	balance_due TEXT,
	accepted_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invoice_headers_number ON invoice_headers(invoice_number);
CREATE INDEX IF NOT EXISTS idx_invoice_headers_accepted_at ON invoice_headers(accepted_at DESC);

CREATE TABLE IF NOT EXISTS invoice_line_items (
	id BIGSERIAL PRIMARY KEY,
	invoice_header_id BIGINT NOT NULL REFERENCES invoice_headers(id) ON DELETE CASCADE,
	description TEXT,
	quantity TEXT,
	unit_price TEXT,
	total_amount TEXT,
	charge TEXT
);

CREATE TABLE IF NOT EXISTS statement_headers (
	id BIGSERIAL PRIMARY KEY,
	document_id TEXT NOT NULL,
	statement_date TEXT,
	vendor_name TEXT,
	customer_name TEXT,
	amount_due DOUBLE PRECISION NOT NULL DEFAULT 0,
	aging_current DOUBLE PRECISION NOT NULL DEFAULT 0,
	aging_1_30 DOUBLE PRECISION NOT NULL DEFAULT 0,
	aging_31_60 DOUBLE PRECISION NOT NULL DEFAULT 0,
	aging_61_90 DOUBLE PRECISION NOT NULL DEFAULT 0,
	aging_over_90 DOUBLE PRECISION NOT NULL DEFAULT 0,
	accepted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS statement_transactions (
	id BIGSERIAL PRIMARY KEY,
	statement_header_id BIGINT NOT NULL REFERENCES statement_headers(id) ON DELETE CASCADE,
	tx_date TEXT,
	description TEXT,
	invoice_number TEXT,
	amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	balance DOUBLE PRECISION NOT NULL DEFAULT 0
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// InsertInvoice writes a header plus its line items in one transaction.
// Re-submitting an invoice number seen within the lookback window yields
// domain.ErrDuplicateInvoice and leaves the warehouse unchanged.
func (r *WarehouseRepository) InsertInvoice(ctx context.Context, documentID string, rec *domain.InvoiceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin invoice tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if rec.InvoiceNumber != "" {
		var count int
		since := time.Now().UTC().Add(-r.lookback)
		err := tx.QueryRowContext(ctx, `
SELECT COUNT(1) FROM invoice_headers WHERE invoice_number = $1 AND accepted_at >= $2
`, rec.InvoiceNumber, since).Scan(&count)
		if err != nil {
			return fmt.Errorf("check duplicate invoice: %w", err)
		}
		if count > 0 {
			return domain.WrapError(domain.ErrDuplicateInvoice, "insert invoice",
				fmt.Errorf("invoice %s already recorded", rec.InvoiceNumber))
		}
	}

	var headerID int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO invoice_headers (
	document_id, invoice_number, invoice_date, due_date, vendor_name, bill_to_name,
	ship_to_name, well_name, field_name, subtotal, sales_tax, total_amount_due, balance_due, accepted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id
`,
		documentID, rec.InvoiceNumber, rec.InvoiceDate, rec.DueDate, rec.VendorName, rec.BillToName,
		rec.ShipToName, rec.WellName, rec.FieldName, rec.Subtotal, rec.SalesTax,
		rec.TotalAmountDue, rec.BalanceDue, time.Now().UTC(),
	).Scan(&headerID)
	if err != nil {
		return fmt.Errorf("insert invoice header: %w", err)
	}

	for _, li := range rec.LineItems {
		_, err := tx.ExecContext(ctx, `
INSERT INTO invoice_line_items (
	invoice_header_id, description, quantity, unit_price, total_amount, charge
) VALUES ($1,$2,$3,$4,$5,$6)
`, headerID, li.Description, li.Quantity, li.UnitPrice, li.TotalAmount, li.Charge)
		if err != nil {
			return fmt.Errorf("insert invoice line item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit invoice tx: %w", err)
	}
	return nil
}

func (r *WarehouseRepository) InsertStatement(ctx context.Context, documentID string, rec *domain.StatementRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin statement tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var headerID int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO statement_headers (
	document_id, statement_date, vendor_name, customer_name, amount_due,
	aging_current, aging_1_30, aging_31_60, aging_61_90, aging_over_90, accepted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id
`,
		documentID, rec.StatementDate, rec.VendorName, rec.CustomerName, rec.AmountDue,
		rec.Aging.Current, rec.Aging.Days1To30, rec.Aging.Days31To60, rec.Aging.Days61To90,
		rec.Aging.DaysOver90, time.Now().UTC(),
	).Scan(&headerID)
	if err != nil {
		return fmt.Errorf("insert statement header: %w", err)
	}

	for _, tr := range rec.Transactions {
		_, err := tx.ExecContext(ctx, `
INSERT INTO statement_transactions (
	statement_header_id, tx_date, description, invoice_number, amount, balance
) VALUES ($1,$2,$3,$4,$5,$6)
`, headerID, tr.Date, tr.Description, tr.InvoiceNumber, tr.Amount, tr.Balance)
		if err != nil {
			return fmt.Errorf("insert statement transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit statement tx: %w", err)
	}
	return nil
}

func (r *WarehouseRepository) HasInvoiceNumber(ctx context.Context, invoiceNumber string, since time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM invoice_headers WHERE invoice_number = $1 AND accepted_at >= $2
`, invoiceNumber, since).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count invoice numbers: %w", err)
	}
	return count > 0, nil
}
