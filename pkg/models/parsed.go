package models

import "github.com/shopspring/decimal"

// ParsedItem is the structured result of parsing one ingredient mention. It
// is never persisted directly; identity resolution turns it into recipe
// ingredient rows.
type ParsedItem struct {
	Raw       string              `json:"raw"`
	Amount    decimal.NullDecimal `json:"amount"`
	Unit      *string             `json:"unit"`
	Key       string              `json:"key"`
	AliasNorm string              `json:"alias_norm"`
	Note      *string             `json:"note"`
	Role      string              `json:"role"`
}
