package domain

// LineItem is one billed line on an invoice. Charge carries the well or
// lease identifier when the vendor prints one on the line.
type LineItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalAmount string `json:"total_amount"`
	Charge      string `json:"charge,omitempty"`
}

// InvoiceRecord is the canonical standardized invoice schema produced by
// validation.
type InvoiceRecord struct {
	InvoiceNumber  string     `json:"invoice_number"`
	InvoiceDate    string     `json:"invoice_date"`
	DueDate        string     `json:"due_date"`
	VendorName     string     `json:"vendor_name"`
	BillToName     string     `json:"bill_to_name"`
	ShipToName     string     `json:"ship_to_name"`
	WellName       string     `json:"well_name"`
	FieldName      string     `json:"field_name"`
	Subtotal       string     `json:"subtotal"`
	SalesTax       string     `json:"sales_tax"`
	TotalAmountDue float64    `json:"total_amount_due"`
	BalanceDue     string     `json:"balance_due"`
	LineItems      []LineItem `json:"line_items"`
}

// AgingSummary holds the statement's declared aging buckets.
type AgingSummary struct {
	Current    float64 `json:"current"`
	Days1To30  float64 `json:"days_1_30"`
	Days31To60 float64 `json:"days_31_60"`
	Days61To90 float64 `json:"days_61_90"`
	DaysOver90 float64 `json:"days_over_90"`
}

// Total sums all aging buckets.
func (a AgingSummary) Total() float64 {
	return a.Current + a.Days1To30 + a.Days31To60 + a.Days61To90 + a.DaysOver90
}

// StatementTransaction is one activity row on a vendor statement.
type StatementTransaction struct {
	Date          string  `json:"date"`
	Description   string  `json:"description"`
	InvoiceNumber string  `json:"invoice_number,omitempty"`
	Amount        float64 `json:"amount"`
	Balance       float64 `json:"balance"`
}

// StatementRecord is the canonical standardized statement schema.
type StatementRecord struct {
	StatementDate string                 `json:"statement_date"`
	VendorName    string                 `json:"vendor_name"`
	CustomerName  string                 `json:"customer_name"`
	AmountDue     float64                `json:"amount_due"`
	Aging         AgingSummary           `json:"aging_summary"`
	Transactions  []StatementTransaction `json:"transactions"`
}

// StandardizedRecord is the validated output for one document; exactly
// one of Invoice/Statement is set, matching the document type.
type StandardizedRecord struct {
	Type      DocumentType     `json:"type"`
	Invoice   *InvoiceRecord   `json:"invoice,omitempty"`
	Statement *StatementRecord `json:"statement,omitempty"`
}

// Fields flattens the record to name/value pairs for similarity-index
// payloads and retrieval context blocks.
func (r StandardizedRecord) Fields() map[string]string {
	out := map[string]string{}
	switch {
	case r.Invoice != nil:
		inv := r.Invoice
		put(out, "invoice_number", inv.InvoiceNumber)
		put(out, "invoice_date", inv.InvoiceDate)
		put(out, "due_date", inv.DueDate)
		put(out, "vendor_name", inv.VendorName)
		put(out, "bill_to_name", inv.BillToName)
		put(out, "ship_to_name", inv.ShipToName)
		put(out, "well_name", inv.WellName)
		put(out, "field_name", inv.FieldName)
		put(out, "subtotal", inv.Subtotal)
		put(out, "sales_tax", inv.SalesTax)
		put(out, "total_amount_due", formatAmount(inv.TotalAmountDue))
		put(out, "balance_due", inv.BalanceDue)
	case r.Statement != nil:
		st := r.Statement
		put(out, "statement_date", st.StatementDate)
		put(out, "vendor_name", st.VendorName)
		put(out, "customer_name", st.CustomerName)
		put(out, "amount_due", formatAmount(st.AmountDue))
	}
	return out
}

func put(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
