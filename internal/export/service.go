// Package export renders invoice listings as spreadsheet files.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
	"github.com/kynth65/ai-invoice-management/internal/repository"
)

const sheetName = "Invoices"

var headers = []string{
	"Invoice Number", "Vendor", "Invoice Date", "Due Date",
	"Subtotal", "Tax", "Total", "Currency",
	"Status", "AI Confidence", "Duplicate", "Created At",
}

// Service writes invoice exports. One sheet, one row per invoice.
type Service struct {
	invoices repository.InvoiceRepository
	log      *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, log: logger}
}

// InvoicesXLSX exports the invoices matching filter as an xlsx workbook.
func (s *Service) InvoicesXLSX(ctx context.Context, filter repository.InvoiceFilter) ([]byte, error) {
	invoices, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.log.Warn("export.close_error", "error", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, common.WrapError(err, "rename sheet")
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, common.WrapError(err, "write header")
		}
	}

	for i, inv := range invoices {
		row := invoiceRow(inv)
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, common.WrapError(err, "write row")
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, common.WrapError(err, "write workbook")
	}

	s.log.Info("export.ok", "invoices", len(invoices), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// Filename returns a timestamped download name.
func (s *Service) Filename(now time.Time) string {
	return fmt.Sprintf("invoices-%s.xlsx", now.Format("20060102-150405"))
}

func invoiceRow(inv *entity.Invoice) []any {
	vendor := ""
	if inv.Vendor != nil {
		vendor = inv.Vendor.Name
	}
	return []any{
		inv.InvoiceNumber,
		vendor,
		formatDate(inv.InvoiceDate),
		formatDate(inv.DueDate),
		inv.Subtotal.InexactFloat64(),
		inv.TaxAmount.InexactFloat64(),
		inv.TotalAmount.InexactFloat64(),
		inv.Currency,
		string(inv.Status),
		inv.AIConfidenceScore,
		inv.IsDuplicate,
		inv.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
