// Package textnorm normalises resume and job-description text before it is embedded,
// stored, or compared.
package textnorm

import (
	"strings"
	"unicode"
)

// Clean lowercases text, collapses every run of whitespace to a single space and trims
// the ends.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteByte(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		wasSpace = false
	}
	return b.String()
}

// Words splits cleaned text on whitespace.
func Words(text string) []string {
	return strings.Fields(Clean(text))
}
