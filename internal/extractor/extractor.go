// Package extractor converts stored invoice documents into raw text.
//
// Extraction never returns a Go error to callers: every outcome, including
// unsupported formats and corrupt files, is reported as a Result with
// Success=false and a human-readable Error. The PDF path is a placeholder
// and produces no real document content.
package extractor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kynth65/ai-invoice-management/constants"
)

// Metadata describes the source file of an extraction.
type Metadata struct {
	Filename  string `json:"filename"`
	FileType  string `json:"file_type"`
	Extension string `json:"file_extension"`
	FileSize  int64  `json:"file_size"`
}

// Result is the outcome of one extraction attempt.
type Result struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`

	Method         string `json:"extraction_method"`
	PageCount      int    `json:"page_count,omitempty"`
	ParagraphCount int    `json:"paragraph_count,omitempty"`
	TableCount     int    `json:"table_count,omitempty"`
	SheetCount     int    `json:"sheet_count,omitempty"`
	RowCount       int    `json:"row_count,omitempty"`
	WordCount      int    `json:"word_count"`
	CharacterCount int    `json:"character_count"`
	Note           string `json:"note,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Extractor dispatches by file extension over the supported-format table.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract reads the file at path and produces its text content. The
// dispatch table mirrors constants.SupportedFormats; anything else is a
// structured failure.
func (e *Extractor) Extract(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return errorResult(fmt.Sprintf("File not found: %s", path))
	}

	filename := filepath.Base(path)
	ext := constants.FileExt(filename)

	if !constants.IsSupportedFile(filename) {
		return errorResult(fmt.Sprintf("Unsupported file format: %s", ext))
	}

	var res Result
	switch ext {
	case ".txt":
		res = e.extractText(path)
	case ".docx":
		res = e.extractDocx(path)
	case ".pdf":
		res = e.extractPDF(path)
	case ".xlsx", ".xls":
		res = e.extractExcel(path)
	case ".csv":
		res = e.extractCSV(path)
	case ".rtf":
		res = e.extractRTF(path)
	case ".doc", ".odt":
		res = e.extractLegacy(path, ext)
	default:
		return errorResult(fmt.Sprintf("No processor available for %s", ext))
	}

	res.Metadata = Metadata{
		Filename:  filename,
		FileType:  constants.FileTypeDescription(filename),
		Extension: ext,
		FileSize:  info.Size(),
	}

	if res.Success {
		e.logger.Info("extract.ok",
			"file", filename,
			"ext", ext,
			"method", res.Method,
			"chars", res.CharacterCount,
		)
	} else {
		e.logger.Warn("extract.failed", "file", filename, "ext", ext, "error", res.Error)
	}
	return res
}

// extractLegacy handles formats that need libraries this service does not
// carry (.doc, .odt). The failure message suggests a supported alternative.
func (e *Extractor) extractLegacy(path, ext string) Result {
	filename := filepath.Base(path)

	var detail string
	switch ext {
	case ".doc":
		detail = "Legacy .doc files are not supported for extraction"
	case ".odt":
		detail = "OpenDocument files are not supported for extraction"
	default:
		detail = fmt.Sprintf("Legacy format %s extraction not implemented", ext)
	}

	return Result{
		Success: false,
		Text:    fmt.Sprintf("Cannot extract text from %s. %s", filename, detail),
		Error:   detail,
		Method:  "not_supported",
		Note:    "Please convert to .docx, .txt, or .csv format",
	}
}

// extractPDF is a stub: the interface accepts PDFs, but no PDF library is
// wired in. Consumers must not depend on real PDF content.
func (e *Extractor) extractPDF(path string) Result {
	filename := filepath.Base(path)
	text := fmt.Sprintf("PDF text extraction not yet implemented for %s.\nPlease use .txt or .docx files for now.", filename)
	return Result{
		Success:        true,
		Text:           text,
		Method:         "placeholder",
		PageCount:      1,
		WordCount:      len(strings.Fields(text)),
		CharacterCount: len(text),
		Note:           "PDF extraction requires additional PDF library integration",
	}
}

func errorResult(message string) Result {
	return Result{
		Success: false,
		Text:    "",
		Error:   message,
		Method:  "error",
	}
}

func withCounts(r Result) Result {
	r.WordCount = len(strings.Fields(r.Text))
	r.CharacterCount = len(r.Text)
	return r
}
