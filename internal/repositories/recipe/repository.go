package recipe

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// Repository handles published recipe persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new recipe repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying handle so engines can open units of work.
func (r *Repository) DB() database.DB {
	return r.db
}

// Upsert writes a promoted recipe. Name and slug always win; curated fields
// already set on the published row are kept.
func (r *Repository) Upsert(ctx context.Context, recipe *models.Recipe) error {
	ctx, span := tracing.StartSpan(ctx, "recipe.Repository.Upsert")
	defer span.End()

	query := `
		INSERT INTO recipes (
			id, name, slug, tag, category, cook_time_minutes, difficulty, image_url, short_note, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			tag = COALESCE(recipes.tag, EXCLUDED.tag),
			category = COALESCE(recipes.category, EXCLUDED.category),
			cook_time_minutes = COALESCE(recipes.cook_time_minutes, EXCLUDED.cook_time_minutes),
			difficulty = COALESCE(recipes.difficulty, EXCLUDED.difficulty),
			image_url = COALESCE(EXCLUDED.image_url, recipes.image_url),
			short_note = COALESCE(EXCLUDED.short_note, recipes.short_note)
	`

	_, err := database.FromContext(ctx, r.db).ExecContext(ctx, query,
		recipe.ID, recipe.Name, recipe.Slug, recipe.Tag, recipe.Category,
		recipe.CookTimeMinutes, recipe.Difficulty, recipe.ImageURL, recipe.ShortNote,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"recipe_id": recipe.ID}).Error("Failed to upsert recipe")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert recipe")
	}

	return nil
}

// ReplaceSteps swaps the recipe's steps for the given ordered set.
func (r *Repository) ReplaceSteps(ctx context.Context, recipeID uuid.UUID, steps []models.RecipeStep) error {
	ctx, span := tracing.StartSpan(ctx, "recipe.Repository.ReplaceSteps")
	defer span.End()

	q := database.FromContext(ctx, r.db)

	if _, err := q.ExecContext(ctx, `DELETE FROM recipe_steps WHERE recipe_id = $1`, recipeID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"recipe_id": recipeID}).Error("Failed to clear recipe steps")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear recipe steps")
	}

	if len(steps) == 0 {
		return nil
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("recipe_steps")
	sb.Cols("recipe_id", "step_no", "content", "tip")
	for _, step := range steps {
		sb.Values(recipeID, step.StepNo, step.Content, step.Tip)
	}

	query, args := sb.Build()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"recipe_id": recipeID,
			"count":     len(steps),
		}).Error("Failed to insert recipe steps")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert recipe steps")
	}

	return nil
}

// SetActive toggles recipe visibility.
func (r *Repository) SetActive(ctx context.Context, recipeID uuid.UUID, active bool) error {
	ctx, span := tracing.StartSpan(ctx, "recipe.Repository.SetActive")
	defer span.End()

	query := `UPDATE recipes SET is_active = $1 WHERE id = $2`
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, active, recipeID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"recipe_id": recipeID}).Error("Failed to set recipe active flag")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set recipe active flag")
	}

	return nil
}
