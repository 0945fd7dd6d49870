package llm

import (
	"strconv"
	"strings"
	"time"
)

// DefaultInvoiceFields is the canonical all-null record returned whenever
// extraction fails. It carries the USD currency default and zero
// confidence; it is a fallback, not a retry signal.
func DefaultInvoiceFields() InvoiceFields {
	return InvoiceFields{
		Currency:        "USD",
		Items:           []ItemFields{},
		ConfidenceScore: 0.0,
	}
}

// CleanFields validates and coerces a decoded model response field by
// field. Individual malformed values are nulled or defaulted; cleaning
// never rejects the record as a whole.
func CleanFields(data map[string]any) InvoiceFields {
	out := InvoiceFields{}

	out.InvoiceNumber = cleanString(data["invoice_number"])
	out.VendorName = cleanString(data["vendor_name"])
	out.VendorAddress = cleanString(data["vendor_address"])
	out.VendorEmail = cleanString(data["vendor_email"])
	out.VendorPhone = cleanString(data["vendor_phone"])
	out.Description = cleanString(data["description"])

	out.InvoiceDate = cleanDate(data["invoice_date"])
	out.DueDate = cleanDate(data["due_date"])

	out.TotalAmount = cleanNumber(data["total_amount"])
	out.Subtotal = cleanNumber(data["subtotal"])
	out.TaxAmount = cleanNumber(data["tax_amount"])

	out.Currency = "USD"
	if c := cleanString(data["currency"]); c != nil {
		out.Currency = *c
	}

	out.Items = cleanItems(data["items"])
	out.ConfidenceScore = cleanConfidence(data["confidence_score"])

	return out
}

// cleanString trims and converts empty/whitespace-only values to nil.
func cleanString(v any) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return nil
	}
	return &s
}

// cleanDate keeps only strict YYYY-MM-DD values; no partial-date coercion.
func cleanDate(v any) *string {
	s := cleanString(v)
	if s == nil {
		return nil
	}
	if _, err := time.Parse("2006-01-02", *s); err != nil {
		return nil
	}
	return s
}

// cleanNumber coerces to float64 or nulls the field.
func cleanNumber(v any) *float64 {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// cleanItems defaults each item's missing pieces: description "Item",
// quantity 1, unit price 0, total 0. Non-object entries are dropped.
func cleanItems(v any) []ItemFields {
	items := []ItemFields{}
	list, ok := v.([]any)
	if !ok {
		return items
	}
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := ItemFields{
			Description: "Item",
			Quantity:    1,
			UnitPrice:   0,
			Total:       0,
		}
		if d := cleanString(obj["description"]); d != nil {
			item.Description = *d
		}
		if q, ok := toFloat(obj["quantity"]); ok && q != 0 {
			item.Quantity = q
		}
		if p, ok := toFloat(obj["unit_price"]); ok {
			item.UnitPrice = p
		}
		if t, ok := toFloat(obj["total"]); ok {
			item.Total = t
		}
		items = append(items, item)
	}
	return items
}

// cleanConfidence clamps into [0,1]; non-numeric input defaults to 0.5.
func cleanConfidence(v any) float64 {
	f, ok := toFloat(v)
	if !ok {
		return 0.5
	}
	if f < 0 {
		return 0.0
	}
	if f > 1 {
		return 1.0
	}
	return f
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
