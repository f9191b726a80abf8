package ocr

import (
	"strings"
)

// DefaultLanguages is used when neither the request nor the configuration
// names any OCR languages.
const DefaultLanguages = "kat+eng+rus"

var languageSeparators = strings.NewReplacer(",", "+", ";", "+", " ", "+", "\t", "+")

// SplitLanguages breaks a language spec such as "kat, eng;rus" into its
// non-empty trimmed tokens, in order.
func SplitLanguages(spec string) []string {
	parts := strings.Split(languageSeparators.Replace(spec), "+")

	langs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			langs = append(langs, p)
		}
	}
	return langs
}

// NormalizeLanguages canonicalizes a language spec to the "+"-joined form
// the engine expects, e.g. "kat, eng ; rus" becomes "kat+eng+rus".
func NormalizeLanguages(spec string) string {
	return strings.Join(SplitLanguages(spec), "+")
}
