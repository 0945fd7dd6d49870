package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxVendorHints caps how many known vendor names are embedded in the
// extraction prompt.
const MaxVendorHints = 20

// ExtractionSystemPrompt is the fixed system instruction for the
// structured-extraction call.
const ExtractionSystemPrompt = "You are an expert invoice data extraction assistant. " +
	"Extract accurate financial data from invoices and return valid JSON. " +
	"ALWAYS extract the vendor/company name from the invoice header - this is critical."

// DuplicateSystemPrompt is the fixed system instruction for the
// duplicate-detection call.
const DuplicateSystemPrompt = "You are an expert at detecting duplicate invoices. Return valid JSON."

// BuildExtractionPrompt embeds the raw invoice text, the target JSON
// schema, and up to MaxVendorHints known vendor names as matching hints.
func BuildExtractionPrompt(textContent string, existingVendors []string) string {
	var vendorGuidance string
	if len(existingVendors) > 0 {
		hints := existingVendors
		if len(hints) > MaxVendorHints {
			hints = hints[:MaxVendorHints]
		}
		var b strings.Builder
		b.WriteString("\nEXISTING VENDORS (use exact match if possible):\n")
		for _, v := range hints {
			b.WriteString("- ")
			b.WriteString(v)
			b.WriteString("\n")
		}
		b.WriteString("\nFor vendor_name, try to match one of the existing vendors above if the invoice is from them.\n")
		vendorGuidance = b.String()
	}

	return fmt.Sprintf(`Extract the following information from this invoice text and return it as valid JSON:

{
    "invoice_number": "string or null",
    "invoice_date": "YYYY-MM-DD format or null",
    "due_date": "YYYY-MM-DD format or null",
    "vendor_name": "string or null",
    "vendor_address": "string or null",
    "vendor_email": "string or null",
    "vendor_phone": "string or null",
    "total_amount": "decimal number or null",
    "subtotal": "decimal number or null",
    "tax_amount": "decimal number or null",
    "currency": "string (default USD)",
    "description": "string or null",
    "items": [
        {
            "description": "string",
            "quantity": "number",
            "unit_price": "decimal",
            "total": "decimal"
        }
    ],
    "confidence_score": "float between 0.0 and 1.0"
}
%s
Invoice Text:
%s

CRITICAL EXTRACTION RULES:
- ALWAYS extract the vendor_name from the invoice header/top of the document
- The vendor_name is typically the first company name, business name, or organization name that appears
- Look for company names in the letterhead, header, or first few lines
- If multiple company names appear, the vendor is usually the one issuing the invoice (at the top)
- Return valid JSON only
- Use null for missing information
- Ensure dates are in YYYY-MM-DD format
- Ensure amounts are decimal numbers
- Include confidence score based on text clarity
- For vendor_name, use the full official company name (e.g., "Microsoft Corporation" not "Microsoft")`,
		vendorGuidance, textContent)
}

// BuildDuplicatePrompt packages the candidate summary and the recent
// invoice window for the duplicate-detection call.
func BuildDuplicatePrompt(candidate InvoiceSummary, existing []InvoiceSummary) string {
	existingJSON, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		existingJSON = []byte("[]")
	}

	date := "N/A"
	if candidate.InvoiceDate != nil {
		date = *candidate.InvoiceDate
	}

	return fmt.Sprintf(`Analyze if this new invoice is a duplicate of any existing invoices.

New Invoice:
- Vendor: %s
- Amount: %.2f
- Date: %s
- Invoice Number: %s

Existing Invoices:
%s

Return JSON with:
{
    "is_duplicate": boolean,
    "confidence": float (0.0 to 1.0),
    "matching_invoice_id": string or null,
    "reason": "explanation of why it's considered duplicate or not"
}`,
		orNA(candidate.VendorName), candidate.TotalAmount, date,
		orNA(candidate.InvoiceNumber), existingJSON)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
