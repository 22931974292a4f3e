package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

func newWarehouseWithMock(t *testing.T) (*WarehouseRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &WarehouseRepository{db: db, lookback: 90 * 24 * time.Hour}, mock, func() { _ = db.Close() }
}

func TestInsertInvoiceRejectsDuplicateWithinLookback(t *testing.T) {
	repo, mock, done := newWarehouseWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM invoice_headers").
		WithArgs("INV-4411", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.InsertInvoice(context.Background(), "doc-1", &domain.InvoiceRecord{
		InvoiceNumber:  "INV-4411",
		VendorName:     "Acme Oilfield Services",
		TotalAmountDue: 4250.00,
	})
	if !domain.IsKind(err, domain.ErrDuplicateInvoice) {
		t.Fatalf("expected ErrDuplicateInvoice, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertInvoiceWritesHeaderAndLineItems(t *testing.T) {
	repo, mock, done := newWarehouseWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM invoice_headers").
		WithArgs("INV-4411", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO invoice_headers").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO invoice_line_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO invoice_line_items").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := repo.InsertInvoice(context.Background(), "doc-1", &domain.InvoiceRecord{
		InvoiceNumber:  "INV-4411",
		VendorName:     "Acme Oilfield Services",
		WellName:       "Smith 14-22H",
		TotalAmountDue: 4250.00,
		LineItems: []domain.LineItem{
			{Description: "Hot oil treatment", TotalAmount: "3800.00"},
			{Description: "Mileage", TotalAmount: "450.00"},
		},
	})
	if err != nil {
		t.Fatalf("InsertInvoice() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertStatementWritesHeaderAndTransactions(t *testing.T) {
	repo, mock, done := newWarehouseWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO statement_headers").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO statement_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.InsertStatement(context.Background(), "doc-2", &domain.StatementRecord{
		VendorName: "Acme Oilfield Services",
		AmountDue:  25152.43,
		Transactions: []domain.StatementTransaction{
			{InvoiceNumber: "INV-4411", Amount: 4250.00},
		},
	})
	if err != nil {
		t.Fatalf("InsertStatement() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHasInvoiceNumber(t *testing.T) {
	repo, mock, done := newWarehouseWithMock(t)
	defer done()

	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM invoice_headers").
		WithArgs("INV-4411", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	found, err := repo.HasInvoiceNumber(context.Background(), "INV-4411", since)
	if err != nil {
		t.Fatalf("HasInvoiceNumber() error = %v", err)
	}
	if !found {
		t.Fatal("expected invoice number to be found")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
