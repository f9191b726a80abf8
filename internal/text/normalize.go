// Package text holds the text canonicalization and reconciliation rules shared
// by the extraction and OCR adapters.
package text

import (
	"strings"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize canonicalizes engine output: NUL bytes become spaces, CRLF and
// lone CR become LF, and surrounding whitespace is trimmed.
//
// Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\x00", " ")
	s = lineEndings.Replace(s)

	return strings.TrimSpace(s)
}

// NormalizePtr is Normalize for optional engine fields; nil yields "".
func NormalizePtr(s *string) string {
	if s == nil {
		return ""
	}
	return Normalize(*s)
}
