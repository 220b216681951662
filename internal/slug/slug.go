// Package slug normalizes arbitrary text into stable identifiers used for
// tag, style, author, and link node ids.
package slug

import (
	"regexp"
	"strings"
)

var (
	invalidRunRe = regexp.MustCompile(`[^a-z0-9_-]+`)
	dashRunRe    = regexp.MustCompile(`-+`)
)

// Normalize lowercases s, replaces every maximal run of characters outside
// [a-z0-9_-] with a single dash, collapses repeated dashes, and trims
// leading/trailing dashes. It is pure and idempotent:
// Normalize(Normalize(s)) == Normalize(s).
//
//	"Machine Learning!" -> "machine-learning"
//	"AI & ML"           -> "ai-ml"
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = invalidRunRe.ReplaceAllString(s, "-")
	s = dashRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
