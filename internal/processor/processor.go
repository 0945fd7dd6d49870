// Package processor executes persisted AI tasks against their invoices.
//
// A task moves pending -> processing -> completed/failed. The processing
// transition is an atomic claim; two runners sharing a database never
// execute the same task twice. Results and errors are written back to the
// task row, and successful runs mutate the invoice itself.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/kynth65/ai-invoice-management/constants"
	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
	"github.com/kynth65/ai-invoice-management/internal/extractor"
	"github.com/kynth65/ai-invoice-management/internal/llm"
	"github.com/kynth65/ai-invoice-management/internal/repository"
)

// Comparison window for duplicate detection.
const (
	duplicateWindow      = 30 * 24 * time.Hour
	duplicateCompareSize = 10
)

// ExtractionOutput is the stored result of a data_extraction task.
type ExtractionOutput struct {
	Fields     llm.InvoiceFields `json:"fields"`
	Extraction extractor.Result  `json:"extraction"`
}

// Processor runs one task at a time. It owns no goroutines; concurrency
// is the runner's concern.
type Processor struct {
	tasks    repository.TaskRepository
	invoices repository.InvoiceRepository
	vendors  repository.VendorRepository

	extractor *extractor.Extractor
	fields    llm.FieldExtractor
	dupes     llm.DuplicateDetector

	modelVersion string
	node         string
	log          *slog.Logger
}

func New(
	tasks repository.TaskRepository,
	invoices repository.InvoiceRepository,
	vendors repository.VendorRepository,
	ext *extractor.Extractor,
	fields llm.FieldExtractor,
	dupes llm.DuplicateDetector,
	modelVersion string,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	return &Processor{
		tasks:        tasks,
		invoices:     invoices,
		vendors:      vendors,
		extractor:    ext,
		fields:       fields,
		dupes:        dupes,
		modelVersion: modelVersion,
		node:         host,
		log:          logger,
	}
}

// Process claims and executes the task with the given id. It returns
// (false, nil) when the task was already claimed by another runner; a
// non-nil error means the task itself failed (and was marked failed).
func (p *Processor) Process(ctx context.Context, id uuid.UUID) (bool, error) {
	claimed, err := p.tasks.Claim(ctx, id, p.node)
	if err != nil {
		return false, err
	}
	if !claimed {
		p.log.Debug("task.claim.lost", "task_id", id)
		return false, nil
	}

	task, err := p.tasks.GetByID(ctx, id)
	if err != nil {
		return true, err
	}

	p.log.Info("task.start",
		"task_id", task.ID,
		"task_type", task.TaskType,
		"invoice_id", task.InvoiceID,
		"retry_count", task.RetryCount,
	)

	var runErr error
	switch task.TaskType {
	case constants.TaskDataExtraction:
		runErr = p.runExtraction(ctx, task)
	case constants.TaskDuplicateDetection:
		runErr = p.runDuplicateDetection(ctx, task)
	default:
		runErr = fmt.Errorf("Unknown task type: %s", task.TaskType)
	}

	p.finalize(ctx, task, runErr)
	return true, runErr
}

// finalize stamps the terminal state. Completion time and duration are
// recorded on both outcomes.
func (p *Processor) finalize(ctx context.Context, task *entity.ProcessingTask, runErr error) {
	now := time.Now().UTC()
	task.CompletedAt = &now
	if task.StartedAt != nil {
		ms := now.Sub(*task.StartedAt).Milliseconds()
		task.ProcessingDurationMs = &ms
	}
	task.ModelVersion = p.modelVersion

	if runErr != nil {
		task.Status = constants.TaskStatusFailed
		task.ErrorMessage = runErr.Error()
		p.log.Error("task.failed",
			"task_id", task.ID,
			"task_type", task.TaskType,
			"error", runErr,
		)
	} else {
		task.Status = constants.TaskStatusCompleted
		task.ErrorMessage = ""
		p.log.Info("task.completed",
			"task_id", task.ID,
			"task_type", task.TaskType,
			"confidence", task.ConfidenceScore,
			"duration_ms", derefInt64(task.ProcessingDurationMs),
		)
	}

	if err := p.tasks.Update(ctx, task); err != nil {
		p.log.Error("task.finalize.save_failed", "task_id", task.ID, "error", err)
	}
}

// runExtraction pulls text out of the invoice's file, asks the model for
// structured fields, and merges them into the invoice without clobbering
// values a human already entered.
func (p *Processor) runExtraction(ctx context.Context, task *entity.ProcessingTask) error {
	inv, err := p.invoices.GetByID(ctx, task.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}

	inv.AIProcessingStatus = constants.AIStatusProcessing
	if err := p.invoices.Save(ctx, inv); err != nil {
		return fmt.Errorf("mark invoice processing: %w", err)
	}

	if err := p.extractAndApply(ctx, task, inv); err != nil {
		p.markExtractionFailed(ctx, task.InvoiceID)
		return err
	}
	return nil
}

func (p *Processor) extractAndApply(ctx context.Context, task *entity.ProcessingTask, inv *entity.Invoice) error {
	res := p.extractor.Extract(inv.FilePath)
	text := res.Text
	if !res.Success || strings.TrimSpace(text) == "" {
		// No readable content; give the model what we know about the
		// record so extraction still has a chance on metadata alone.
		text = p.fallbackText(inv, res)
	}

	vendorNames, err := p.vendors.ListNames(ctx)
	if err != nil {
		return fmt.Errorf("list vendors: %w", err)
	}

	fields := p.fields.ExtractInvoiceData(ctx, text, vendorNames)

	if err := task.SetOutput(ExtractionOutput{Fields: fields, Extraction: res}); err != nil {
		return fmt.Errorf("store output: %w", err)
	}
	task.ConfidenceScore = fields.ConfidenceScore

	if err := p.applyFields(ctx, inv, fields); err != nil {
		return fmt.Errorf("apply extracted fields: %w", err)
	}
	return nil
}

// markExtractionFailed flips the invoice's AI status so a terminally
// failed extraction is never left advertising "processing". Best effort:
// the task's own failure record is the source of truth.
func (p *Processor) markExtractionFailed(ctx context.Context, invoiceID uuid.UUID) {
	inv, err := p.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		p.log.Error("invoice.mark_failed.load_error", "invoice_id", invoiceID, "error", err)
		return
	}
	inv.AIProcessingStatus = constants.AIStatusFailed
	if err := p.invoices.Save(ctx, inv); err != nil {
		p.log.Error("invoice.mark_failed.save_error", "invoice_id", invoiceID, "error", err)
	}
}

// applyFields merges extracted data into the invoice. The policy is
// fill-gaps: a field already populated on the invoice wins over the
// model, except currency which always follows the extraction.
func (p *Processor) applyFields(ctx context.Context, inv *entity.Invoice, fields llm.InvoiceFields) error {
	if inv.InvoiceNumber == "" && fields.InvoiceNumber != nil {
		inv.InvoiceNumber = *fields.InvoiceNumber
	}
	if inv.InvoiceDate == nil {
		inv.InvoiceDate = parseDate(fields.InvoiceDate)
	}
	if inv.DueDate == nil {
		inv.DueDate = parseDate(fields.DueDate)
	}
	if inv.TotalAmount.IsZero() && fields.TotalAmount != nil {
		inv.TotalAmount = decimal.NewFromFloat(*fields.TotalAmount)
	}
	if inv.Subtotal.IsZero() && fields.Subtotal != nil {
		inv.Subtotal = decimal.NewFromFloat(*fields.Subtotal)
	}
	if inv.TaxAmount.IsZero() && fields.TaxAmount != nil {
		inv.TaxAmount = decimal.NewFromFloat(*fields.TaxAmount)
	}
	if fields.Currency != "" {
		inv.Currency = fields.Currency
	}
	if inv.Notes == "" && fields.Description != nil {
		inv.Notes = *fields.Description
	}

	if inv.VendorID == nil && fields.VendorName != nil {
		vendor, err := p.resolveVendor(ctx, fields)
		if err != nil {
			return err
		}
		if vendor != nil {
			inv.VendorID = &vendor.ID
		}
	}

	if len(fields.Items) > 0 {
		existing, err := p.invoices.CountItems(ctx, inv.ID)
		if err != nil {
			return err
		}
		if existing == 0 {
			items := make([]*entity.InvoiceItem, 0, len(fields.Items))
			for _, it := range fields.Items {
				items = append(items, &entity.InvoiceItem{
					InvoiceID:    inv.ID,
					Description:  it.Description,
					Quantity:     decimal.NewFromFloat(it.Quantity),
					UnitPrice:    decimal.NewFromFloat(it.UnitPrice),
					AIConfidence: fields.ConfidenceScore,
				})
			}
			if err := p.invoices.CreateItems(ctx, items); err != nil {
				return err
			}
		}
	}

	raw, err := marshalFields(fields)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	inv.ExtractedData = raw
	inv.AIConfidenceScore = fields.ConfidenceScore
	inv.IsAIProcessed = true
	inv.AIProcessingStatus = constants.AIStatusCompleted
	inv.Status = constants.InvoiceProcessed
	inv.ProcessedAt = &now

	return p.invoices.Save(ctx, inv)
}

// resolveVendor finds an existing vendor for the extracted name or
// creates one flagged as AI-verified. Matching tiers: exact, database
// containment, then in-memory reverse containment guarded to names
// longer than 3 characters.
func (p *Processor) resolveVendor(ctx context.Context, fields llm.InvoiceFields) (*entity.Vendor, error) {
	name := strings.TrimSpace(*fields.VendorName)
	if name == "" {
		return nil, nil
	}

	v, err := p.vendors.FindByNameExact(ctx, name)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if len(name) > 3 {
		v, err = p.vendors.FindByNameContains(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}

	existing, err := p.vendors.List(ctx)
	if err != nil {
		return nil, err
	}
	nameLower := strings.ToLower(name)
	for _, v := range existing {
		known := strings.ToLower(v.Name)
		if len(known) > 3 && strings.Contains(nameLower, known) {
			return v, nil
		}
	}

	vendor := &entity.Vendor{
		Name:            name,
		IsAIVerified:    true,
		ConfidenceScore: fields.ConfidenceScore,
	}
	if fields.VendorEmail != nil {
		vendor.Email = *fields.VendorEmail
	}
	if fields.VendorPhone != nil {
		vendor.Phone = *fields.VendorPhone
	}
	if fields.VendorAddress != nil {
		vendor.AddressLine1 = *fields.VendorAddress
	}
	if err := p.vendors.Create(ctx, vendor); err != nil {
		return nil, err
	}
	p.log.Info("vendor.created", "vendor_id", vendor.ID, "name", vendor.Name)
	return vendor, nil
}

// runDuplicateDetection compares the invoice against its owner's recent
// invoices. A duplicate verdict marks the invoice but never deletes it.
func (p *Processor) runDuplicateDetection(ctx context.Context, task *entity.ProcessingTask) error {
	inv, err := p.invoices.GetByID(ctx, task.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}

	since := time.Now().UTC().Add(-duplicateWindow)
	recent, err := p.invoices.RecentForComparison(ctx, inv.UserID, inv.ID, since, duplicateCompareSize)
	if err != nil {
		return fmt.Errorf("load comparison invoices: %w", err)
	}

	candidate := summarize(inv)
	existing := make([]llm.InvoiceSummary, 0, len(recent))
	for _, other := range recent {
		existing = append(existing, summarize(other))
	}

	verdict := p.dupes.DetectDuplicates(ctx, candidate, existing)

	if err := task.SetOutput(verdict); err != nil {
		return fmt.Errorf("store output: %w", err)
	}
	task.ConfidenceScore = verdict.Confidence

	if verdict.IsDuplicate {
		inv.IsDuplicate = true
		if verdict.MatchingInvoiceID != nil {
			if matchID, perr := uuid.Parse(*verdict.MatchingInvoiceID); perr == nil {
				inv.DuplicateOfID = &matchID
			}
		}
		if err := p.invoices.Save(ctx, inv); err != nil {
			return fmt.Errorf("mark duplicate: %w", err)
		}
		p.log.Warn("invoice.duplicate_detected",
			"invoice_id", inv.ID,
			"confidence", verdict.Confidence,
			"reason", verdict.Reason,
		)
	}
	return nil
}

func summarize(inv *entity.Invoice) llm.InvoiceSummary {
	s := llm.InvoiceSummary{
		ID:            inv.ID.String(),
		TotalAmount:   inv.TotalAmount.InexactFloat64(),
		InvoiceNumber: inv.InvoiceNumber,
	}
	if inv.Vendor != nil {
		s.VendorName = inv.Vendor.Name
	}
	if inv.InvoiceDate != nil {
		d := inv.InvoiceDate.Format("2006-01-02")
		s.InvoiceDate = &d
	}
	return s
}

// fallbackText builds a stand-in document from invoice metadata when the
// file itself yielded nothing.
func (p *Processor) fallbackText(inv *entity.Invoice, res extractor.Result) string {
	var b strings.Builder
	b.WriteString("Invoice document (text extraction unavailable)\n")
	fmt.Fprintf(&b, "File: %s\n", res.Metadata.Filename)
	if inv.InvoiceNumber != "" {
		fmt.Fprintf(&b, "Invoice number: %s\n", inv.InvoiceNumber)
	}
	if !inv.TotalAmount.IsZero() {
		fmt.Fprintf(&b, "Total amount: %s %s\n", inv.TotalAmount.StringFixed(2), inv.Currency)
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "Extraction error: %s\n", res.Error)
	}
	return b.String()
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}

func marshalFields(fields llm.InvoiceFields) (datatypes.JSON, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
