package staging

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// Repository reads raw scraped recipes from the staging store. Read only.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new staging repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetRecipe loads one staged recipe header.
func (r *Repository) GetRecipe(ctx context.Context, stagingID int64) (*models.StagingRecipe, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.GetRecipe")
	defer span.End()

	query := `
		SELECT recipe_id, source, locale, name, description, hero_image
		FROM stg_recipes
		WHERE recipe_id = $1
	`

	var recipe models.StagingRecipe
	if err := r.db.GetContext(ctx, &recipe, query, stagingID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "staging recipe %d not found", stagingID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"staging_id": stagingID}).Error("Failed to get staging recipe")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get staging recipe")
	}

	return &recipe, nil
}

// ListSteps returns the staged steps in order.
func (r *Repository) ListSteps(ctx context.Context, stagingID int64) ([]models.StagingStep, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.ListSteps")
	defer span.End()

	query := `
		SELECT step_index, step_text
		FROM stg_recipe_steps
		WHERE recipe_id = $1
		ORDER BY step_index
	`

	var steps []models.StagingStep
	if err := r.db.SelectContext(ctx, &steps, query, stagingID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"staging_id": stagingID}).Error("Failed to list staging steps")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list staging steps")
	}

	return steps, nil
}

// ListIngredientTexts returns the raw ingredient lines in scrape order.
func (r *Repository) ListIngredientTexts(ctx context.Context, stagingID int64) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.ListIngredientTexts")
	defer span.End()

	query := `
		SELECT ingredient_text
		FROM stg_recipe_ingredients
		WHERE recipe_id = $1
		ORDER BY ingredient_index
	`

	var texts []string
	if err := r.db.SelectContext(ctx, &texts, query, stagingID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"staging_id": stagingID}).Error("Failed to list staging ingredient lines")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list staging ingredient lines")
	}

	return texts, nil
}

// ListRecentIDs returns the newest staged recipe ids, newest first.
func (r *Repository) ListRecentIDs(ctx context.Context, limit int) ([]int64, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.Repository.ListRecentIDs")
	defer span.End()

	if limit < 1 {
		limit = 20
	}

	query := `
		SELECT recipe_id
		FROM stg_recipes
		ORDER BY recipe_id DESC
		LIMIT $1
	`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list recent staging recipe ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list recent staging recipe ids")
	}

	return ids, nil
}
