package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodeAttempt pairs an encoding name with its decode function. Decode
// returns an error when the bytes are not valid in that encoding.
type decodeAttempt struct {
	name   string
	decode func([]byte) (string, error)
}

// encodingFallbacks is the fixed ordered list of character encodings tried
// for plain text and CSV input. The first that decodes cleanly wins.
var encodingFallbacks = []decodeAttempt{
	{"utf-8", decodeUTF8},
	{"utf-8-sig", decodeUTF8BOM},
	{"latin-1", decodeCharmap(charmap.ISO8859_1)},
	{"cp1252", decodeCharmap(charmap.Windows1252)},
}

func decodeUTF8(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("invalid utf-8")
	}
	return string(b), nil
}

func decodeUTF8BOM(b []byte) (string, error) {
	trimmed := bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	if len(trimmed) == len(b) {
		return "", fmt.Errorf("no utf-8 BOM")
	}
	return decodeUTF8(trimmed)
}

func decodeCharmap(cm *charmap.Charmap) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		out, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func decodeWithFallback(b []byte) (text, encoding string, err error) {
	for _, attempt := range encodingFallbacks {
		if s, decErr := attempt.decode(b); decErr == nil {
			return s, attempt.name, nil
		}
	}
	return "", "", fmt.Errorf("unable to decode file with any supported encoding")
}

// extractText reads a plain-text file, trying the fixed encoding order.
func (e *Extractor) extractText(path string) Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errorResult(fmt.Sprintf("Text file extraction failed: %v", err))
	}

	text, encoding, err := decodeWithFallback(raw)
	if err != nil {
		return errorResult("Unable to decode text file with any supported encoding")
	}

	return withCounts(Result{
		Success:   true,
		Text:      strings.TrimSpace(text),
		Method:    "text_file_" + encoding,
		PageCount: 1,
	})
}

// extractCSV reads the single CSV table: rows joined by " | ", one line
// per record.
func (e *Extractor) extractCSV(path string) Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errorResult(fmt.Sprintf("CSV extraction failed: %v", err))
	}

	text, encoding, err := decodeWithFallback(raw)
	if err != nil {
		return errorResult("Unable to decode CSV file with any supported encoding")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return errorResult(fmt.Sprintf("CSV parsing failed: %v", err))
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " | "))
	}

	return withCounts(Result{
		Success:  true,
		Text:     strings.Join(lines, "\n"),
		Method:   "csv_" + encoding,
		RowCount: len(rows),
	})
}
