package usecase

import (
	"testing"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

var testIndicators = []string{
	"statement of account",
	"aging summary",
	"statement date",
	"account summary",
	"balance forward",
	"past due",
}

func TestClassifyFilenameOverridesText(t *testing.T) {
	c := NewClassifier(testIndicators)

	got := c.Classify("Vendor_STATEMENT_May.pdf", "invoice number 123 total due")
	if got != domain.TypeStatement {
		t.Fatalf("Classify() = %s, want %s", got, domain.TypeStatement)
	}
}

func TestClassifyRequiresTwoIndicators(t *testing.T) {
	c := NewClassifier(testIndicators)

	cases := []struct {
		name string
		text string
		want domain.DocumentType
	}{
		{
			name: "no indicators",
			text: "Invoice #4411 for services rendered, total amount due $1,204.00",
			want: domain.TypeInvoice,
		},
		{
			name: "single indicator stays invoice",
			text: "Please remit payment, account is past due.",
			want: domain.TypeInvoice,
		},
		{
			name: "two indicators flip to statement",
			text: "STATEMENT OF ACCOUNT\nAging Summary\nCurrent: 500.00",
			want: domain.TypeStatement,
		},
		{
			name: "case-insensitive match",
			text: "balance FORWARD from prior period\nSTATEMENT DATE: 05/31/2025",
			want: domain.TypeStatement,
		},
		{
			name: "repeated same indicator counts once",
			text: "past due past due past due",
			want: domain.TypeInvoice,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify("scan_00123.pdf", tc.text); got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.name, got, tc.want)
			}
		})
	}
}

func TestClassifyEmptyTextDefaultsToInvoice(t *testing.T) {
	c := NewClassifier(testIndicators)

	if got := c.Classify("scan_00124.pdf", ""); got != domain.TypeInvoice {
		t.Fatalf("Classify() = %s, want %s", got, domain.TypeInvoice)
	}
}
