// Package slug derives URL-safe identifiers from post titles.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLength is the number of title characters kept before slugifying.
const DefaultMaxLength = 42

const (
	replacement = '_'
	removed     = `*+~.()'"!:@`
)

// Make lower-cases title, strips accents and punctuation and joins words with
// single underscores. The title is cut to maxLength runes first; maxLength <= 0
// keeps it whole.
func Make(title string, maxLength int) string {
	rs := []rune(title)
	if maxLength > 0 && len(rs) > maxLength {
		rs = rs[:maxLength]
	}

	var b strings.Builder
	pendingSpace := false
	for _, r := range fold(string(rs)) {
		switch {
		case unicode.IsSpace(r) || r == replacement:
			pendingSpace = true
			continue
		case strings.ContainsRune(removed, r):
			continue
		case !allowed(r):
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteRune(replacement)
		}
		pendingSpace = false
		b.WriteRune(unicode.ToLower(r))
	}

	return strings.Trim(b.String(), string(replacement))
}

// fold drops combining marks, so "Café" becomes "Cafe". Letters with no
// Latin base form are kept as they are.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func allowed(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '$'
}
