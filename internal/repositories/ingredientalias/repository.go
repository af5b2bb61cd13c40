package ingredientalias

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// NormGroup is a normalized alias form shared by more than one ingredient.
type NormGroup struct {
	AliasNorm string `db:"alias_norm" json:"alias_norm"`
	Count     int64  `db:"count" json:"count"`
}

// Repository handles ingredient alias persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new ingredient alias repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert registers an alias for an ingredient. Inserting an alias that
// already exists is a no-op.
func (r *Repository) Insert(ctx context.Context, ingredientID int64, alias, aliasNorm string) error {
	ctx, span := tracing.StartSpan(ctx, "ingredientalias.Repository.Insert")
	defer span.End()

	query := `
		INSERT INTO ingredient_aliases (ingredient_id, alias, alias_norm)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, ingredientID, alias, aliasNorm); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"ingredient_id": ingredientID,
			"alias_norm":    aliasNorm,
		}).Error("Failed to insert ingredient alias")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert ingredient alias")
	}

	return nil
}

// ListByIngredient returns the aliases owned by an ingredient.
func (r *Repository) ListByIngredient(ctx context.Context, ingredientID int64) ([]models.IngredientAlias, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredientalias.Repository.ListByIngredient")
	defer span.End()

	query := `
		SELECT id, ingredient_id, alias, alias_norm
		FROM ingredient_aliases
		WHERE ingredient_id = $1
		ORDER BY id
	`

	var aliases []models.IngredientAlias
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &aliases, query, ingredientID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list ingredient aliases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ingredient aliases")
	}

	return aliases, nil
}

// OtherIngredientIDs returns every ingredient besides canonicalID that owns
// an alias with the given normalized form.
func (r *Repository) OtherIngredientIDs(ctx context.Context, aliasNorm string, canonicalID int64) ([]int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredientalias.Repository.OtherIngredientIDs")
	defer span.End()

	query := `
		SELECT DISTINCT ingredient_id
		FROM ingredient_aliases
		WHERE alias_norm = $1
		  AND ingredient_id <> $2
		ORDER BY ingredient_id
	`

	var ids []int64
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &ids, query, aliasNorm, canonicalID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"alias_norm": aliasNorm}).Error("Failed to find colliding ingredient ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find colliding ingredient ids")
	}

	return ids, nil
}

// MoveNormToCanonical copies the colliding alias rows from donor to the
// canonical ingredient where absent, then removes them from the donor.
func (r *Repository) MoveNormToCanonical(ctx context.Context, aliasNorm string, donorID, canonicalID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredientalias.Repository.MoveNormToCanonical")
	defer span.End()

	q := database.FromContext(ctx, r.db)

	insert := `
		INSERT INTO ingredient_aliases (ingredient_id, alias, alias_norm)
		SELECT $1, ia.alias, ia.alias_norm
		FROM ingredient_aliases ia
		WHERE ia.ingredient_id = $2
		  AND ia.alias_norm = $3
		  AND NOT EXISTS (
			SELECT 1
			FROM ingredient_aliases x
			WHERE x.ingredient_id = $1
			  AND x.alias_norm = ia.alias_norm
		  )
	`
	if _, err := q.ExecContext(ctx, insert, canonicalID, donorID, aliasNorm); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"alias_norm":   aliasNorm,
			"donor_id":     donorID,
			"canonical_id": canonicalID,
		}).Error("Failed to copy alias to canonical ingredient")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to copy alias to canonical ingredient")
	}

	result, err := q.ExecContext(ctx, `
		DELETE FROM ingredient_aliases
		WHERE ingredient_id = $1
		  AND alias_norm = $2
	`, donorID, aliasNorm)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"alias_norm": aliasNorm,
			"donor_id":   donorID,
		}).Error("Failed to delete alias from donor ingredient")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete alias from donor ingredient")
	}

	moved, _ := result.RowsAffected()
	return moved, nil
}

// MoveAllToCanonical moves every alias row from the donor ingredient to the
// canonical ingredient, skipping norms the canonical already owns.
func (r *Repository) MoveAllToCanonical(ctx context.Context, donorID, canonicalID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredientalias.Repository.MoveAllToCanonical")
	defer span.End()

	q := database.FromContext(ctx, r.db)

	insert := `
		INSERT INTO ingredient_aliases (ingredient_id, alias, alias_norm)
		SELECT $1, ia.alias, ia.alias_norm
		FROM ingredient_aliases ia
		WHERE ia.ingredient_id = $2
		  AND NOT EXISTS (
			SELECT 1
			FROM ingredient_aliases x
			WHERE x.ingredient_id = $1
			  AND x.alias_norm = ia.alias_norm
		  )
	`
	if _, err := q.ExecContext(ctx, insert, canonicalID, donorID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"donor_id":     donorID,
			"canonical_id": canonicalID,
		}).Error("Failed to copy aliases to canonical ingredient")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to copy aliases to canonical ingredient")
	}

	result, err := q.ExecContext(ctx, `
		DELETE FROM ingredient_aliases
		WHERE ingredient_id = $1
	`, donorID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"donor_id": donorID,
		}).Error("Failed to delete aliases from donor ingredient")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete aliases from donor ingredient")
	}

	moved, _ := result.RowsAffected()
	return moved, nil
}

// ListNormConflicts reports normalized alias forms owned by more than one
// row, largest groups first.
func (r *Repository) ListNormConflicts(ctx context.Context, limit int) ([]NormGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredientalias.Repository.ListNormConflicts")
	defer span.End()

	if limit < 1 {
		limit = 20
	}

	query := `
		SELECT alias_norm, COUNT(*) AS count
		FROM ingredient_aliases
		GROUP BY alias_norm
		HAVING COUNT(*) > 1
		ORDER BY COUNT(*) DESC
		LIMIT $1
	`

	var groups []NormGroup
	if err := r.db.SelectContext(ctx, &groups, query, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list alias_norm conflicts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list alias_norm conflicts")
	}

	return groups, nil
}
