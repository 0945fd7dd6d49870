package llm

import "context"

// InvoiceFields is the normalized shape we want from the language model.
// Nullable fields use pointers; a nil pointer means the model produced
// nothing usable for that field.
type InvoiceFields struct {
	InvoiceNumber *string  `json:"invoice_number"`
	InvoiceDate   *string  `json:"invoice_date"` // YYYY-MM-DD
	DueDate       *string  `json:"due_date"`     // YYYY-MM-DD
	VendorName    *string  `json:"vendor_name"`
	VendorAddress *string  `json:"vendor_address"`
	VendorEmail   *string  `json:"vendor_email"`
	VendorPhone   *string  `json:"vendor_phone"`
	TotalAmount   *float64 `json:"total_amount"`
	Subtotal      *float64 `json:"subtotal"`
	TaxAmount     *float64 `json:"tax_amount"`
	Currency      string   `json:"currency"` // defaults to USD
	Description   *string  `json:"description"`

	Items           []ItemFields `json:"items"`
	ConfidenceScore float64      `json:"confidence_score"` // clamped 0..1
}

// ItemFields is one extracted line item. Missing values are defaulted,
// never rejected.
type ItemFields struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// InvoiceSummary is the comparison view of an invoice used for duplicate
// detection, both for the candidate and the recent window.
type InvoiceSummary struct {
	ID            string  `json:"id,omitempty"`
	VendorName    string  `json:"vendor_name"`
	TotalAmount   float64 `json:"total_amount"`
	InvoiceDate   *string `json:"invoice_date"`
	InvoiceNumber string  `json:"invoice_number"`
}

// DuplicateVerdict is the model's judgement on a candidate invoice.
type DuplicateVerdict struct {
	IsDuplicate       bool    `json:"is_duplicate"`
	Confidence        float64 `json:"confidence"`
	MatchingInvoiceID *string `json:"matching_invoice_id"`
	Reason            string  `json:"reason"`
}

// FieldExtractor is the structured-extraction interface the task
// processor depends on. Implementations absorb every failure into the
// canonical default record; they never return an error.
type FieldExtractor interface {
	ExtractInvoiceData(ctx context.Context, text string, existingVendors []string) InvoiceFields
}

// DuplicateDetector judges whether a candidate duplicates a recent
// invoice. Failures yield the "assume not duplicate" verdict.
type DuplicateDetector interface {
	DetectDuplicates(ctx context.Context, candidate InvoiceSummary, existing []InvoiceSummary) DuplicateVerdict
}
