// Package matching finds probable duplicate ingredients and classifies
// candidate merges.
package matching

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/opencookbook/mortar/pkg/normalize"
)

// Similarity returns a matching-blocks ratio in [0,1] over the characters
// of the two normalized keys.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// LooksBadKey reports whether a key is disqualified from candidacy:
// sentence-like, digit carrying, or suspiciously long.
func LooksBadKey(key string) bool {
	if key == "" {
		return true
	}
	if normalize.ContainsDigit(key) {
		return true
	}
	if utf8.RuneCountInString(key) >= 40 {
		return true
	}
	if len(strings.Fields(key)) > 8 {
		return true
	}
	return false
}

// bucketKey partitions normalized keys by first character and length band
// so pairwise comparison stays bounded.
func bucketKey(norm string) string {
	if norm == "" {
		return "empty"
	}
	first, _ := utf8.DecodeRuneInString(norm)
	band := (len(norm) / 5) * 5
	return fmt.Sprintf("%c:%d", first, band)
}
