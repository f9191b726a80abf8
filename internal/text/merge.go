package text

import (
	"strings"
)

// Merge reconciles the content-parser text (primary) with the OCR text
// (secondary).
//
// When one candidate contains the other it is kept alone, otherwise both are
// kept separated by a blank line. Rules are applied in order:
//  1. empty primary yields secondary
//  2. empty secondary yields primary
//  3. case-insensitive equality, or primary inside secondary, yields secondary
//  4. secondary inside primary yields primary
//  5. otherwise primary + "\n\n" + secondary, trimmed
//
// Containment checks are case-sensitive; only the equality check folds case.
func Merge(primary, secondary string) string {
	if primary == "" {
		return secondary
	}
	if secondary == "" {
		return primary
	}
	if strings.ToLower(primary) == strings.ToLower(secondary) || strings.Contains(secondary, primary) {
		return secondary
	}
	if strings.Contains(primary, secondary) {
		return primary
	}
	return strings.TrimSpace(primary + "\n\n" + secondary)
}
