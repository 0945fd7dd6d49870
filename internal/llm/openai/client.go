package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kynth65/ai-invoice-management/internal/llm"
)

// duplicate-detection budget: small and near-deterministic on purpose.
const (
	duplicateMaxTokens   = 200
	duplicateTemperature = 0.1
)

// ExtractInvoiceData implements llm.FieldExtractor. One blocking call, no
// retries; every failure mode (transport, non-JSON, schema mismatch)
// collapses into the canonical default record with confidence 0.
func (c *Client) ExtractInvoiceData(ctx context.Context, textContent string, existingVendors []string) llm.InvoiceFields {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(textContent),
		"known_vendors", len(existingVendors),
	)

	prompt := llm.BuildExtractionPrompt(textContent, existingVendors)
	content, err := c.chatJSON(ctx, rid, llm.ExtractionSystemPrompt, prompt, c.cfg.MaxTokens, c.cfg.Temperature)
	if err != nil {
		c.log.Error("llm.extract.call_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.DefaultInvoiceFields()
	}

	schema := llm.BuildInvoiceJSONSchema()
	if err := llm.ValidateJSONAgainstSchema(schema, content); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.DefaultInvoiceFields()
	}

	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.DefaultInvoiceFields()
	}

	cleaned := llm.CleanFields(raw)

	if len(existingVendors) > 0 && cleaned.VendorName != nil {
		normalized := llm.NormalizeVendorName(*cleaned.VendorName, existingVendors)
		if normalized != *cleaned.VendorName {
			c.log.Info("llm.extract.vendor_normalized",
				"req_id", rid, "from", *cleaned.VendorName, "to", normalized)
		}
		cleaned.VendorName = &normalized
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"vendor", strValue(cleaned.VendorName),
		"total", floatValue(cleaned.TotalAmount),
		"currency", cleaned.Currency,
		"confidence", cleaned.ConfidenceScore,
		"items", len(cleaned.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return cleaned
}

// DetectDuplicates implements llm.DuplicateDetector. Absence of a verdict
// is treated as "not duplicate" so a failed analysis never blocks a
// legitimate invoice.
func (c *Client) DetectDuplicates(ctx context.Context, candidate llm.InvoiceSummary, existing []llm.InvoiceSummary) llm.DuplicateVerdict {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.duplicate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"existing_invoices", len(existing),
	)

	prompt := llm.BuildDuplicatePrompt(candidate, existing)
	content, err := c.chatJSON(ctx, rid, llm.DuplicateSystemPrompt, prompt, duplicateMaxTokens, duplicateTemperature)
	if err != nil {
		c.log.Error("llm.duplicate.call_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return failedVerdict()
	}

	var verdict llm.DuplicateVerdict
	if err := json.Unmarshal(content, &verdict); err != nil {
		c.log.Error("llm.duplicate.decode_error",
			"req_id", rid, "error", err, "content", string(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return failedVerdict()
	}

	c.log.Info("llm.duplicate.ok",
		"req_id", rid,
		"is_duplicate", verdict.IsDuplicate,
		"confidence", verdict.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return verdict
}

func failedVerdict() llm.DuplicateVerdict {
	return llm.DuplicateVerdict{
		IsDuplicate:       false,
		Confidence:        0.0,
		MatchingInvoiceID: nil,
		Reason:            "Analysis failed",
	}
}

// chatJSON performs one chat/completions round-trip with the response
// format forced to a JSON object, returning the message content bytes.
func (c *Client) chatJSON(ctx context.Context, rid, system, user string, maxTokens int, temperature float32) ([]byte, error) {
	body := map[string]any{
		"model":           c.cfg.Model,
		"max_tokens":      maxTokens,
		"temperature":     temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty message content in openai response")
	}
	c.log.Debug("llm.chat.content", "req_id", rid, "bytes", len(content))
	return []byte(content), nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.log.Warn("openai response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatValue(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
