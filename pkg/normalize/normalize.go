// Package normalize derives canonical comparison keys from display text.
// Every lookup, match, and merge path must use the same normalization, so
// this is the only place it is implemented.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Key lowercases s, strips diacritics, collapses every run of
// non-alphanumeric characters to a single space, and trims. Deterministic
// and idempotent.
func Key(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ContainsDigit reports whether s has any ASCII digit.
func ContainsDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
