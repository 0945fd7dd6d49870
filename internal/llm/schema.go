package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns the extraction target schema as a generic
// map. It is deliberately permissive about value types (the model may
// emit amounts as numbers or strings); CleanFields owns coercion. The
// schema gates only gross shape errors: non-object responses, items that
// are not an array of objects.
func BuildInvoiceJSONSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	nullableNumber := map[string]any{"type": []string{"number", "string", "null"}}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoice_number": nullableString,
			"invoice_date":   nullableString,
			"due_date":       nullableString,
			"vendor_name":    nullableString,
			"vendor_address": nullableString,
			"vendor_email":   nullableString,
			"vendor_phone":   nullableString,
			"total_amount":   nullableNumber,
			"subtotal":       nullableNumber,
			"tax_amount":     nullableNumber,
			"currency":       nullableString,
			"description":    nullableString,
			"items": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
				},
			},
			"confidence_score": nullableNumber,
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
