package extractor

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel reads every sheet of a workbook: a "--- Sheet: NAME ---"
// marker per sheet, then the header row and pipe-delimited data rows.
// Legacy .xls files fail in excelize's opener and surface as a structured
// failure.
func (e *Extractor) extractExcel(path string) Result {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to read Excel file: %v", err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("extract.excel.close_error", "error", cerr)
		}
	}()

	var lines []string
	totalRows := 0
	sheets := f.GetSheetList()

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return errorResult(fmt.Sprintf("Failed to read Excel sheet %q: %v", sheet, err))
		}

		lines = append(lines, fmt.Sprintf("--- Sheet: %s ---", sheet))
		for _, row := range rows {
			line := strings.Join(row, " | ")
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		totalRows += len(rows)
	}

	return withCounts(Result{
		Success:    true,
		Text:       strings.Join(lines, "\n"),
		Method:     "excelize",
		SheetCount: len(sheets),
		RowCount:   totalRows,
	})
}
