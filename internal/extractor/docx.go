package extractor

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDocx reads word/document.xml from the .docx archive and walks the
// WordprocessingML token stream: body paragraphs are concatenated first,
// then table rows (cells joined by " | ") after a section marker.
func (e *Extractor) extractDocx(path string) Result {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return errorResult(fmt.Sprintf("DOCX extraction failed: %v", err))
	}
	defer zr.Close()

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return errorResult("DOCX extraction failed: word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return errorResult(fmt.Sprintf("DOCX extraction failed: %v", err))
	}
	defer rc.Close()

	paragraphs, tableLines, tableCount, err := walkDocumentXML(rc)
	if err != nil {
		return errorResult(fmt.Sprintf("DOCX extraction failed: %v", err))
	}

	parts := make([]string, 0, len(paragraphs)+len(tableLines)+1)
	parts = append(parts, paragraphs...)
	if len(tableLines) > 0 {
		parts = append(parts, "\n--- Tables ---")
		parts = append(parts, tableLines...)
	}
	text := strings.Join(parts, "\n")

	return withCounts(Result{
		Success:        true,
		Text:           text,
		Method:         "docx_archive",
		PageCount:      len(paragraphs)/20 + 1, // rough estimate
		ParagraphCount: len(paragraphs),
		TableCount:     tableCount,
	})
}

// walkDocumentXML streams WordprocessingML, splitting text runs between
// body paragraphs and table cells. Nesting rule: any w:t inside an open
// w:tbl belongs to the current cell, not to a body paragraph.
func walkDocumentXML(r io.Reader) (paragraphs, tableLines []string, tableCount int, err error) {
	dec := xml.NewDecoder(r)

	var (
		tableDepth int
		para       strings.Builder
		cell       strings.Builder
		row        []string
	)

	for {
		tok, tokErr := dec.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			return nil, nil, 0, tokErr
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					tableCount++
				}
			case "t":
				var run string
				if err := dec.DecodeElement(&run, &t); err != nil {
					return nil, nil, 0, err
				}
				if tableDepth > 0 {
					cell.WriteString(run)
				} else {
					para.WriteString(run)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth--
			case "p":
				if tableDepth == 0 {
					if s := strings.TrimSpace(para.String()); s != "" {
						paragraphs = append(paragraphs, s)
					}
					para.Reset()
				}
			case "tc":
				if s := strings.TrimSpace(cell.String()); s != "" {
					row = append(row, s)
				}
				cell.Reset()
			case "tr":
				if len(row) > 0 {
					tableLines = append(tableLines, strings.Join(row, " | "))
				}
				row = nil
			}
		}
	}

	return paragraphs, tableLines, tableCount, nil
}
