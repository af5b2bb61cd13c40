package models

import "time"

// Role values for a recipe ingredient row.
const (
	RoleCore     = "core"
	RoleOptional = "optional"
)

// Ingredient is a canonical ingredient identity. Key is unique; KeyNorm is
// the normalized comparison form derived from Key.
type Ingredient struct {
	ID            int64     `db:"id" json:"id"`
	Key           string    `db:"key" json:"key"`
	KeyNorm       string    `db:"key_norm" json:"key_norm"`
	DisplayName   string    `db:"display_name" json:"display_name"`
	SearchText    string    `db:"search_text" json:"search_text"`
	Group         string    `db:"group" json:"group"`
	IsCoreDefault bool      `db:"is_core_default" json:"is_core_default"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// IngredientAlias is a textual variant owned by an ingredient. AliasNorm is
// not globally unique; two ingredients holding the same normalized alias is
// a transient state cleaned up by collision resolution.
type IngredientAlias struct {
	ID           int64  `db:"id" json:"id"`
	IngredientID int64  `db:"ingredient_id" json:"ingredient_id"`
	Alias        string `db:"alias" json:"alias"`
	AliasNorm    string `db:"alias_norm" json:"alias_norm"`
}

// IngredientUsage pairs an ingredient with its recipe reference count. Used
// by merge candidate generation.
type IngredientUsage struct {
	ID        int64  `db:"id" json:"id"`
	Key       string `db:"key" json:"key"`
	KeyNorm   string `db:"key_norm" json:"key_norm"`
	UsedCount int64  `db:"used_count" json:"used_count"`
}
