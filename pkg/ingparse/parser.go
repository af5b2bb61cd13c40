// Package ingparse turns a raw ingredient line into structured mentions.
package ingparse

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/normalize"
)

var (
	reBullet   = regexp.MustCompile(`^[\s\-•*+·]+`)
	reSpaces   = regexp.MustCompile(`\s+`)
	reParens   = regexp.MustCompile(`\(([^)]{1,200})\)`)
	reFraction = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)\s*(\p{L}+)\s*(.*)$`)
	reDecimal  = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(\p{L}+)\s*(.*)$`)
)

// Parser extracts structured ingredient mentions from free text. It never
// fails: anything it cannot interpret degrades to plain name text, and
// items whose name still carries a digit are dropped as parse failures.
type Parser struct {
	vocab Vocabulary
}

func NewParser(vocab Vocabulary) *Parser {
	return &Parser{vocab: vocab}
}

// Parse processes one raw line and returns zero or more structured items.
func (p *Parser) Parse(raw string) []models.ParsedItem {
	textMain, parenNote := precleanExtractParens(raw)
	parts := splitCombo(textMain)
	isCombo := len(parts) > 1

	var out []models.ParsedItem
	for _, part := range parts {
		if part == "" {
			continue
		}
		amount, unit, rest := p.parseAmountUnit(part)
		key, note := p.extractKeyAndNote(rest, parenNote)
		if key == "" {
			continue
		}
		if normalize.ContainsDigit(key) {
			continue
		}
		item := models.ParsedItem{
			Raw:       raw,
			Amount:    amount,
			Unit:      unit,
			Key:       key,
			AliasNorm: normalize.Key(key),
			Note:      note,
			Role:      p.inferRole(raw, note, isCombo),
		}
		out = append(out, item)
	}
	return out
}

func normalizeSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// precleanExtractParens strips list markers, folds semicolons into commas,
// and pulls parenthetical text out as an auxiliary note.
func precleanExtractParens(raw string) (string, *string) {
	s := normalizeSpaces(reBullet.ReplaceAllString(strings.TrimSpace(raw), ""))
	s = strings.ReplaceAll(s, ";", ",")

	matches := reParens.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	s = normalizeSpaces(reParens.ReplaceAllString(s, ""))
	var notes []string
	for _, m := range matches {
		if n := normalizeSpaces(m[1]); n != "" {
			notes = append(notes, n)
		}
	}
	if len(notes) == 0 {
		return s, nil
	}
	note := strings.Join(notes, "; ")
	return s, &note
}

func splitCombo(textMain string) []string {
	if !strings.Contains(textMain, ",") {
		return []string{textMain}
	}
	var parts []string
	for _, p := range strings.Split(textMain, ",") {
		if p = normalizeSpaces(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// parseAmountUnit matches a leading fraction or decimal quantity followed by
// a known unit token. When nothing matches, the whole part is returned as
// the remaining name text.
func (p *Parser) parseAmountUnit(part string) (decimal.NullDecimal, *string, string) {
	s := strings.TrimSpace(part)

	if m := reFraction.FindStringSubmatch(s); m != nil {
		if unit, ok := p.foldUnit(m[3]); ok {
			num, errN := decimal.NewFromString(m[1])
			den, errD := decimal.NewFromString(m[2])
			amount := decimal.NullDecimal{}
			if errN == nil && errD == nil && !den.IsZero() {
				amount = decimal.NullDecimal{Decimal: num.Div(den), Valid: true}
			}
			return amount, &unit, normalizeSpaces(m[4])
		}
	}

	if m := reDecimal.FindStringSubmatch(s); m != nil {
		if unit, ok := p.foldUnit(m[2]); ok {
			amount := decimal.NullDecimal{}
			if v, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ".")); err == nil {
				amount = decimal.NullDecimal{Decimal: v, Valid: true}
			}
			return amount, &unit, normalizeSpaces(m[3])
		}
	}

	return decimal.NullDecimal{}, nil, s
}

func (p *Parser) foldUnit(token string) (string, bool) {
	folded, ok := p.vocab.Units[strings.ToLower(strings.TrimSpace(token))]
	return folded, ok
}

// extractKeyAndNote removes hedge phrases and a single trailing modifier
// from the name text, accumulating them into the note. The remainder,
// trimmed and lowercased, is the candidate key.
func (p *Parser) extractKeyAndNote(rest string, parenNote *string) (string, *string) {
	var noteParts []string
	if parenNote != nil {
		noteParts = append(noteParts, *parenNote)
	}

	tokens := strings.Fields(normalizeSpaces(rest))
	tokens, hedges := removePhrases(tokens, p.vocab.HedgePhrases)
	for _, h := range hedges {
		if !containsString(noteParts, h) {
			noteParts = append(noteParts, h)
		}
	}

	tokens, modifier := stripTrailingModifier(tokens, p.vocab.TrailingModifiers)
	if modifier != "" {
		noteParts = append(noteParts, modifier)
	}

	key := strings.Join(tokens, " ")
	key = normalizeSpaces(strings.Trim(key, " .:-–—"))
	key = strings.ToLower(key)

	if len(noteParts) == 0 {
		return key, nil
	}
	note := strings.Join(noteParts, "; ")
	return key, &note
}

// removePhrases scans tokens left to right and removes every occurrence of
// the given phrases. At each position the first phrase that matches wins.
// Removed occurrences are returned in match order, original casing kept.
func removePhrases(tokens []string, phrases [][]string) ([]string, []string) {
	var kept []string
	var removed []string
	for i := 0; i < len(tokens); {
		matched := 0
		for _, phrase := range phrases {
			if phraseAt(tokens, i, phrase) {
				removed = append(removed, strings.Join(tokens[i:i+len(phrase)], " "))
				matched = len(phrase)
				break
			}
		}
		if matched > 0 {
			i += matched
			continue
		}
		kept = append(kept, tokens[i])
		i++
	}
	return kept, removed
}

func phraseAt(tokens []string, i int, phrase []string) bool {
	if i+len(phrase) > len(tokens) {
		return false
	}
	for j, want := range phrase {
		if strings.ToLower(tokens[i+j]) != want {
			return false
		}
	}
	return true
}

// stripTrailingModifier removes the longest trailing modifier phrase, if
// any, leaving at least one name token.
func stripTrailingModifier(tokens []string, modifiers [][]string) ([]string, string) {
	for width := 2; width >= 1; width-- {
		if len(tokens) <= width {
			continue
		}
		start := len(tokens) - width
		for _, mod := range modifiers {
			if len(mod) != width {
				continue
			}
			if phraseAt(tokens, start, mod) {
				return tokens[:start], strings.Join(tokens[start:], " ")
			}
		}
	}
	return tokens, ""
}

// inferRole marks combo-split items and hedged mentions as optional.
func (p *Parser) inferRole(raw string, note *string, isCombo bool) string {
	if isCombo {
		return models.RoleOptional
	}
	if p.containsHedge(raw) {
		return models.RoleOptional
	}
	if note != nil && p.containsHedge(*note) {
		return models.RoleOptional
	}
	return models.RoleCore
}

func (p *Parser) containsHedge(s string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i := range tokens {
		for _, phrase := range p.vocab.HedgePhrases {
			if phraseAt(tokens, i, phrase) {
				return true
			}
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
