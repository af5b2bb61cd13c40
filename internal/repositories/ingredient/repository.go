package ingredient

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// Repository handles ingredient persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new ingredient repository
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

// GetOrCreate resolves a parsed key to an ingredient id, creating the
// ingredient and its alias when nothing matches. Joins the transaction
// carried by the context.
func (r *Repository) GetOrCreate(ctx context.Context, key, aliasNorm string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredient.Repository.GetOrCreate")
	defer span.End()

	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "empty ingredient key")
	}

	q := database.FromContext(ctx, r.db)

	// fastest path: a known alias form
	var id int64
	err := q.GetContext(ctx, &id, `
		SELECT ingredient_id
		FROM ingredient_aliases
		WHERE alias_norm = $1
		LIMIT 1
	`, aliasNorm)
	if err == nil {
		return id, nil
	}
	if err.Error() != "sql: no rows in result set" {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"alias_norm": aliasNorm}).Error("Failed to look up ingredient alias")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up ingredient alias")
	}

	// key is unique, so an existing ingredient only needs the alias added
	err = q.GetContext(ctx, &id, `SELECT id FROM ingredients WHERE key = $1`, key)
	if err == nil {
		if err := r.insertAlias(ctx, q, id, key, aliasNorm); err != nil {
			return 0, err
		}
		return id, nil
	}
	if err.Error() != "sql: no rows in result set" {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key": key}).Error("Failed to look up ingredient by key")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up ingredient")
	}

	err = q.GetContext(ctx, &id, `
		INSERT INTO ingredients (key, key_norm, display_name, search_text, "group", is_core_default)
		VALUES ($1, $2, $3, $4, 'other', FALSE)
		ON CONFLICT (key) DO UPDATE SET key = EXCLUDED.key
		RETURNING id
	`, key, aliasNorm, key, aliasNorm)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key": key}).Error("Failed to create ingredient")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create ingredient")
	}

	if err := r.insertAlias(ctx, q, id, key, aliasNorm); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) insertAlias(ctx context.Context, q database.Queryer, id int64, alias, aliasNorm string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ingredient_aliases (ingredient_id, alias, alias_norm)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, id, alias, aliasNorm)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"ingredient_id": id}).Error("Failed to ensure ingredient alias")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to ensure ingredient alias")
	}
	return nil
}

// Get retrieves an ingredient by id
func (r *Repository) Get(ctx context.Context, id int64) (*models.Ingredient, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredient.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "key", "COALESCE(key_norm, '') AS key_norm", "display_name", "search_text", `"group"`, "is_core_default", "created_at")
	sb.From("ingredients")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var ing models.Ingredient
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &ing, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "ingredient %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get ingredient")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ingredient")
	}

	return &ing, nil
}

// ListWithUsage returns every ingredient with its recipe reference count.
func (r *Repository) ListWithUsage(ctx context.Context) ([]models.IngredientUsage, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredient.Repository.ListWithUsage")
	defer span.End()

	query := `
		SELECT
			i.id,
			i.key,
			COALESCE(i.key_norm, '') AS key_norm,
			COALESCE(u.used_count, 0) AS used_count
		FROM ingredients i
		LEFT JOIN (
			SELECT ingredient_id, COUNT(*) AS used_count
			FROM recipe_ingredients
			GROUP BY ingredient_id
		) u ON u.ingredient_id = i.id
	`

	var rows []models.IngredientUsage
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list ingredients with usage")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ingredients")
	}

	return rows, nil
}

// ListMissingKeyNorm returns ingredients whose derived key_norm was never
// filled.
func (r *Repository) ListMissingKeyNorm(ctx context.Context) ([]models.Ingredient, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredient.Repository.ListMissingKeyNorm")
	defer span.End()

	query := `
		SELECT id, key, COALESCE(key_norm, '') AS key_norm, display_name, search_text, "group", is_core_default, created_at
		FROM ingredients
		WHERE key_norm IS NULL OR key_norm = ''
	`

	var rows []models.Ingredient
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list ingredients missing key_norm")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ingredients")
	}

	return rows, nil
}

// UpdateKeyNorm sets the derived key_norm for one ingredient.
func (r *Repository) UpdateKeyNorm(ctx context.Context, id int64, keyNorm string) error {
	ctx, span := tracing.StartSpan(ctx, "ingredient.Repository.UpdateKeyNorm")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("ingredients")
	sb.Set(sb.Assign("key_norm", keyNorm))
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"ingredient_id": id}).Error("Failed to update key_norm")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update key_norm")
	}

	return nil
}

// DeleteIfOrphaned removes the ingredient when nothing references it: no
// recipe rows and no aliases. Reports whether a row was deleted.
func (r *Repository) DeleteIfOrphaned(ctx context.Context, id int64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ingredient.Repository.DeleteIfOrphaned")
	defer span.End()

	query := `
		DELETE FROM ingredients i
		WHERE i.id = $1
		  AND NOT EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.ingredient_id = i.id)
		  AND NOT EXISTS (SELECT 1 FROM ingredient_aliases ia WHERE ia.ingredient_id = i.id)
	`

	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"ingredient_id": id}).Error("Failed to delete orphaned ingredient")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete orphaned ingredient")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
