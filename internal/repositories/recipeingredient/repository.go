package recipeingredient

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/shopspring/decimal"

	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// ConflictPair is a recipe that references both sides of a merge. The
// canonical row absorbs the alias row.
type ConflictPair struct {
	RecipeID uuid.UUID `db:"recipe_id"`

	CanonicalAmount decimal.NullDecimal `db:"c_amount"`
	CanonicalUnit   *string             `db:"c_unit"`
	CanonicalNote   *string             `db:"c_note"`
	CanonicalRole   string              `db:"c_role"`

	AliasAmount decimal.NullDecimal `db:"a_amount"`
	AliasUnit   *string             `db:"a_unit"`
	AliasNote   *string             `db:"a_note"`
	AliasRole   string              `db:"a_role"`
}

// Repository handles recipe ingredient row persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new recipe ingredient repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ReplaceForRecipe swaps the ingredient rows of a recipe for the given set.
// Promotion re-runs are idempotent because the old rows go first.
func (r *Repository) ReplaceForRecipe(ctx context.Context, recipeID uuid.UUID, rows []models.RecipeIngredient) error {
	ctx, span := tracing.StartSpan(ctx, "recipeingredient.Repository.ReplaceForRecipe")
	defer span.End()

	q := database.FromContext(ctx, r.db)

	if _, err := q.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipeID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"recipe_id": recipeID}).Error("Failed to clear recipe ingredients")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear recipe ingredients")
	}

	if len(rows) == 0 {
		return nil
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("recipe_ingredients")
	sb.Cols("recipe_id", "ingredient_id", "amount", "unit", "note", "role")
	for _, row := range rows {
		sb.Values(recipeID, row.IngredientID, row.Amount, row.Unit, row.Note, row.Role)
	}

	query, args := sb.Build()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"recipe_id": recipeID,
			"count":     len(rows),
		}).Error("Failed to insert recipe ingredients")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert recipe ingredients")
	}

	return nil
}

// ListByIngredient returns the rows referencing an ingredient.
func (r *Repository) ListByIngredient(ctx context.Context, ingredientID int64) ([]models.RecipeIngredient, error) {
	ctx, span := tracing.StartSpan(ctx, "recipeingredient.Repository.ListByIngredient")
	defer span.End()

	query := `
		SELECT id, recipe_id, ingredient_id, amount, unit, note, role
		FROM recipe_ingredients
		WHERE ingredient_id = $1
		ORDER BY recipe_id
	`

	var rows []models.RecipeIngredient
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &rows, query, ingredientID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list recipe ingredients")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list recipe ingredients")
	}

	return rows, nil
}

// ListConflicts returns the recipes that reference both the canonical and
// the alias ingredient, with both rows' fields side by side.
func (r *Repository) ListConflicts(ctx context.Context, canonicalID, aliasID int64) ([]ConflictPair, error) {
	ctx, span := tracing.StartSpan(ctx, "recipeingredient.Repository.ListConflicts")
	defer span.End()

	query := `
		SELECT
			c.recipe_id,
			c.amount AS c_amount, c.unit AS c_unit, c.note AS c_note, c.role AS c_role,
			a.amount AS a_amount, a.unit AS a_unit, a.note AS a_note, a.role AS a_role
		FROM recipe_ingredients c
		JOIN recipe_ingredients a ON a.recipe_id = c.recipe_id
		WHERE c.ingredient_id = $1
		  AND a.ingredient_id = $2
		ORDER BY c.recipe_id
	`

	var pairs []ConflictPair
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &pairs, query, canonicalID, aliasID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"canonical_id": canonicalID,
			"alias_id":     aliasID,
		}).Error("Failed to list conflicting recipe ingredients")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list conflicting recipe ingredients")
	}

	return pairs, nil
}

// UpdateFields overwrites the quantity fields of one row.
func (r *Repository) UpdateFields(ctx context.Context, recipeID uuid.UUID, ingredientID int64, amount decimal.NullDecimal, unit, note *string, role string) error {
	ctx, span := tracing.StartSpan(ctx, "recipeingredient.Repository.UpdateFields")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("recipe_ingredients")
	sb.Set(
		sb.Assign("amount", amount),
		sb.Assign("unit", unit),
		sb.Assign("note", note),
		sb.Assign("role", role),
	)
	sb.Where(
		sb.Equal("recipe_id", recipeID),
		sb.Equal("ingredient_id", ingredientID),
	)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"recipe_id":     recipeID,
			"ingredient_id": ingredientID,
		}).Error("Failed to update recipe ingredient")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update recipe ingredient")
	}

	return nil
}

// Delete removes one row by its natural key.
func (r *Repository) Delete(ctx context.Context, recipeID uuid.UUID, ingredientID int64) error {
	ctx, span := tracing.StartSpan(ctx, "recipeingredient.Repository.Delete")
	defer span.End()

	query := `DELETE FROM recipe_ingredients WHERE recipe_id = $1 AND ingredient_id = $2`
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, recipeID, ingredientID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"recipe_id":     recipeID,
			"ingredient_id": ingredientID,
		}).Error("Failed to delete recipe ingredient")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete recipe ingredient")
	}

	return nil
}

// RepointNonConflicting moves rows from the alias ingredient to the
// canonical one wherever the recipe does not already reference the
// canonical.
func (r *Repository) RepointNonConflicting(ctx context.Context, canonicalID, aliasID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "recipeingredient.Repository.RepointNonConflicting")
	defer span.End()

	query := `
		UPDATE recipe_ingredients a
		SET ingredient_id = $1
		WHERE a.ingredient_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM recipe_ingredients c
			WHERE c.recipe_id = a.recipe_id
			  AND c.ingredient_id = $1
		  )
	`

	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, canonicalID, aliasID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"canonical_id": canonicalID,
			"alias_id":     aliasID,
		}).Error("Failed to repoint recipe ingredients")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to repoint recipe ingredients")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// DeleteConflicting removes the donor's rows in recipes that already
// reference the canonical ingredient. Runs before a blanket repoint so the
// unique (recipe_id, ingredient_id) constraint cannot trip.
func (r *Repository) DeleteConflicting(ctx context.Context, donorID, canonicalID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "recipeingredient.Repository.DeleteConflicting")
	defer span.End()

	query := `
		DELETE FROM recipe_ingredients ri
		WHERE ri.ingredient_id = $1
		  AND EXISTS (
			SELECT 1 FROM recipe_ingredients r2
			WHERE r2.recipe_id = ri.recipe_id
			  AND r2.ingredient_id = $2
		  )
	`

	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, donorID, canonicalID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"donor_id":     donorID,
			"canonical_id": canonicalID,
		}).Error("Failed to delete conflicting recipe ingredients")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete conflicting recipe ingredients")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// RepointAll moves every remaining donor row to the canonical ingredient.
func (r *Repository) RepointAll(ctx context.Context, canonicalID, donorID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "recipeingredient.Repository.RepointAll")
	defer span.End()

	query := `UPDATE recipe_ingredients SET ingredient_id = $1 WHERE ingredient_id = $2`

	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, canonicalID, donorID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"donor_id":     donorID,
			"canonical_id": canonicalID,
		}).Error("Failed to repoint recipe ingredients")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to repoint recipe ingredients")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
