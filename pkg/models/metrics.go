package models

import "time"

// CatalogSnapshot is one observation of aggregate catalog health, produced
// by the read-only monitor queries.
type CatalogSnapshot struct {
	TakenAt time.Time `json:"taken_at"`

	RecipesTotal    int64 `db:"recipes_total" json:"recipes_total"`
	RecipesActive   int64 `db:"recipes_active" json:"recipes_active"`
	RecipesInactive int64 `db:"recipes_inactive" json:"recipes_inactive"`
	RecipesLast24h  int64 `db:"recipes_last_24h" json:"recipes_last_24h"`

	IngredientsTotal     int64 `db:"ingredients_total" json:"ingredients_total"`
	IngredientsLast24h   int64 `db:"ingredients_last_24h" json:"ingredients_last_24h"`
	IngredientsWithDigit int64 `db:"ingredients_with_digit" json:"ingredients_with_digit"`
	IngredientsLongKey   int64 `db:"ingredients_long_key" json:"ingredients_long_key"`

	RecipeIngredientRows int64 `db:"recipe_ingredient_rows" json:"recipe_ingredient_rows"`
}
