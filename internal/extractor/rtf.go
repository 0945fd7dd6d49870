package extractor

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	rtfControlWords = regexp.MustCompile(`\\[a-z]+-?\d*\s?`)
	rtfBraces       = regexp.MustCompile(`[{}]`)
	rtfWhitespace   = regexp.MustCompile(`\s+`)
)

// extractRTF strips control words and group braces with pattern
// substitution and collapses whitespace. Best-effort only: advanced
// formatting and embedded objects are lost.
func (e *Extractor) extractRTF(path string) Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errorResult(fmt.Sprintf("RTF extraction failed: %v", err))
	}

	text := string(raw)
	text = rtfControlWords.ReplaceAllString(text, "")
	text = rtfBraces.ReplaceAllString(text, "")
	text = rtfWhitespace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return withCounts(Result{
		Success: true,
		Text:    text,
		Method:  "rtf_basic",
		Note:    "Basic RTF parsing - advanced formatting may be lost",
	})
}
