package index

import "strings"

// stopWords is the fixed list of high-frequency function words dropped from
// both indexed text and queries. Changing it invalidates existing snapshots.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "a": {}, "to": {}, "of": {},
	"in": {}, "it": {}, "is": {}, "that": {}, "on": {},
	"for": {}, "as": {}, "with": {}, "this": {}, "be": {},
}

// Tokenize lowercases text and extracts maximal runs of ASCII letters and
// digits, dropping stop words. Deterministic and language-agnostic; queries
// and documents must go through the same function for scoring to line up.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if _, stop := stopWords[tok]; !stop {
			out = append(out, tok)
		}
	}
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// termFrequencies counts token occurrences.
func termFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
