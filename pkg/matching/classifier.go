package matching

import (
	"strings"

	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/normalize"
)

// Classifier maps a suggestion to an automatic decision. Pure function of
// the current key values: norms are recomputed on every call so upstream
// edits can never leave a stale verdict behind.
type Classifier struct {
	vocab ClassifierVocabulary
	// approvePackaging enables the packaging suffix auto-approval rule.
	approvePackaging bool
}

func NewClassifier(vocab ClassifierVocabulary, approvePackaging bool) *Classifier {
	return &Classifier{vocab: vocab, approvePackaging: approvePackaging}
}

// Classify evaluates the rules in strict order; reject rules run first and
// the first match wins.
func (c *Classifier) Classify(s models.Suggestion) string {
	canonNorm := normalize.Key(s.CanonicalKey)
	aliasNorm := normalize.Key(s.AliasKey)

	switch {
	case LooksBadKey(s.AliasKey) || LooksBadKey(s.CanonicalKey):
		return models.DecisionAutoReject
	case c.proteinMismatch(canonNorm, aliasNorm):
		return models.DecisionAutoReject
	case c.hasDangerousPair(canonNorm, aliasNorm):
		return models.DecisionAutoReject
	case lastTokenDiff(canonNorm, aliasNorm) && s.Score < 0.98:
		// a differing head token usually changes the meaning
		return models.DecisionAutoReject
	case canonNorm == aliasNorm:
		return models.DecisionAutoApprove
	case c.approvePackaging && c.hasPackagingSuffix(aliasNorm, canonNorm):
		return models.DecisionAutoApprove
	default:
		return models.DecisionManualReview
	}
}

// hasPackagingSuffix reports whether the alias is the canonical token
// sequence followed only by packaging tokens.
func (c *Classifier) hasPackagingSuffix(aliasNorm, canonNorm string) bool {
	ct := strings.Fields(canonNorm)
	at := strings.Fields(aliasNorm)
	if len(ct) == 0 || len(at) <= len(ct) {
		return false
	}
	for i, tok := range ct {
		if at[i] != tok {
			return false
		}
	}
	for _, tok := range at[len(ct):] {
		if !c.vocab.PackagingWords[tok] {
			return false
		}
	}
	return true
}

func (c *Classifier) hasDangerousPair(canonNorm, aliasNorm string) bool {
	ct := tokenSet(canonNorm)
	at := tokenSet(aliasNorm)
	for _, pair := range c.vocab.DangerousNearPairs {
		if ct[pair[0]] && at[pair[1]] {
			return true
		}
	}
	return false
}

// proteinMismatch rejects when both sides name proteins but not the same
// set.
func (c *Classifier) proteinMismatch(canonNorm, aliasNorm string) bool {
	ct := intersect(tokenSet(canonNorm), c.vocab.ProteinTokens)
	at := intersect(tokenSet(aliasNorm), c.vocab.ProteinTokens)
	if len(ct) == 0 || len(at) == 0 {
		return false
	}
	return !sameSet(ct, at)
}

func lastTokenDiff(canonNorm, aliasNorm string) bool {
	ct := strings.Fields(canonNorm)
	at := strings.Fields(aliasNorm)
	if len(ct) == 0 || len(at) == 0 {
		return false
	}
	return ct[len(ct)-1] != at[len(at)-1]
}

func tokenSet(norm string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(norm) {
		set[tok] = true
	}
	return set
}

func intersect(set, allowed map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for tok := range set {
		if allowed[tok] {
			out[tok] = true
		}
	}
	return out
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for tok := range a {
		if !b[tok] {
			return false
		}
	}
	return true
}
