package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowers the text, strips diacritics and collapses whitespace.
// Every keyword comparison in the app goes through this, both for incoming
// messages and for configured trigger phrases.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}

	if folded, _, err := transform.String(foldTransformer, text); err == nil {
		text = folded
	}

	return strings.Join(strings.Fields(text), " ")
}
