package extraction

import (
	"strings"
	"unicode"
)

// LooksBinary reports whether a PDF text layer is a leaked content stream
// rather than text. Numeric or symbol-heavy text is not binary.
func LooksBinary(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return false
	}

	totalRunes := 0
	printableCount := 0
	controlCount := 0

	for _, r := range text {
		totalRunes++

		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printableCount++
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			controlCount++
		}
	}

	// More than 2% control chars is a raw stream
	if controlCount > 0 && float64(controlCount)/float64(totalRunes) > 0.02 {
		return true
	}

	return float64(printableCount)/float64(totalRunes) < 0.90
}
