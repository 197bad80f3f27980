package voice

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize maps a recognizer transcript to table form: NFKC, case folded,
// punctuation dropped and whitespace collapsed.
func Normalize(phrase string) string {
	s := folder.String(norm.NFKC.String(phrase))
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsPunct(r) && r != '\'':
			return ' '
		case r == '\'':
			return -1
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
