package constants

import (
	"path/filepath"
	"sort"
	"strings"
)

// SupportedFormats maps a lowercase file extension (with dot) to a
// human-readable description. Extensions absent from this table are
// rejected before any extraction is attempted.
var SupportedFormats = map[string]string{
	".pdf":  "PDF Document",
	".txt":  "Text File",
	".docx": "Word Document",
	".doc":  "Word Document (Legacy)",
	".xlsx": "Excel Spreadsheet",
	".xls":  "Excel Spreadsheet (Legacy)",
	".csv":  "CSV File",
	".rtf":  "Rich Text Format",
	".odt":  "OpenDocument Text",
}

// NormalizeExt lowercases an extension and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// FileExt returns the normalized extension of a filename.
func FileExt(filename string) string {
	return NormalizeExt(filepath.Ext(filename))
}

// IsSupportedFile reports whether the filename's extension is in the
// supported-format table.
func IsSupportedFile(filename string) bool {
	_, ok := SupportedFormats[FileExt(filename)]
	return ok
}

// FileTypeDescription returns the description for a filename, or "Unknown".
func FileTypeDescription(filename string) string {
	if desc, ok := SupportedFormats[FileExt(filename)]; ok {
		return desc
	}
	return "Unknown"
}

// SupportedExtensions returns the supported extensions in stable order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(SupportedFormats))
	for ext := range SupportedFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
