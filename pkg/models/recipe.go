package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recipe is the published recipe record. The identity pipeline treats it as
// the parent of recipe ingredient rows and recipe steps.
type Recipe struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Slug            string    `db:"slug" json:"slug"`
	Tag             string    `db:"tag" json:"tag"`
	Category        string    `db:"category" json:"category"`
	CookTimeMinutes int       `db:"cook_time_minutes" json:"cook_time_minutes"`
	Difficulty      string    `db:"difficulty" json:"difficulty"`
	ImageURL        *string   `db:"image_url" json:"image_url"`
	ShortNote       *string   `db:"short_note" json:"short_note"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type RecipeStep struct {
	RecipeID uuid.UUID `db:"recipe_id" json:"recipe_id"`
	StepNo   int       `db:"step_no" json:"step_no"`
	Content  string    `db:"content" json:"content"`
	Tip      *string   `db:"tip" json:"tip"`
}

// RecipeIngredient links a recipe to an ingredient with quantity metadata.
// Unique per (recipe_id, ingredient_id), which is what forces merges to
// resolve conflicts instead of blindly rewriting ingredient ids.
type RecipeIngredient struct {
	ID           int64               `db:"id" json:"id"`
	RecipeID     uuid.UUID           `db:"recipe_id" json:"recipe_id"`
	IngredientID int64               `db:"ingredient_id" json:"ingredient_id"`
	Amount       decimal.NullDecimal `db:"amount" json:"amount"`
	Unit         *string             `db:"unit" json:"unit"`
	Note         *string             `db:"note" json:"note"`
	Role         string              `db:"role" json:"role"`
}

// StagingRecipe is a raw scraped recipe awaiting promotion.
type StagingRecipe struct {
	RecipeID    int64   `db:"recipe_id" json:"recipe_id"`
	Source      string  `db:"source" json:"source"`
	Locale      string  `db:"locale" json:"locale"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
	HeroImage   *string `db:"hero_image" json:"hero_image"`
}

type StagingStep struct {
	StepIndex int    `db:"step_index" json:"step_index"`
	StepText  string `db:"step_text" json:"step_text"`
}
