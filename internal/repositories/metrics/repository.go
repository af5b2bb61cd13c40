package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// Repository runs the aggregate health queries. Read only.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new metrics repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Snapshot collects the aggregate catalog counts in one round trip.
func (r *Repository) Snapshot(ctx context.Context) (*models.CatalogSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "metrics.Repository.Snapshot")
	defer span.End()

	query := `
		SELECT
			(SELECT COUNT(*) FROM recipes) AS recipes_total,
			(SELECT COUNT(*) FROM recipes WHERE is_active) AS recipes_active,
			(SELECT COUNT(*) FROM recipes WHERE NOT is_active) AS recipes_inactive,
			(SELECT COUNT(*) FROM recipes WHERE created_at >= NOW() - INTERVAL '24 hours') AS recipes_last_24h,
			(SELECT COUNT(*) FROM ingredients) AS ingredients_total,
			(SELECT COUNT(*) FROM ingredients WHERE created_at >= NOW() - INTERVAL '24 hours') AS ingredients_last_24h,
			(SELECT COUNT(*) FROM ingredients WHERE key ~ '[0-9]') AS ingredients_with_digit,
			(SELECT COUNT(*) FROM ingredients WHERE LENGTH(key) >= 40) AS ingredients_long_key,
			(SELECT COUNT(*) FROM recipe_ingredients) AS recipe_ingredient_rows
	`

	var snap models.CatalogSnapshot
	if err := r.db.GetContext(ctx, &snap, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to collect catalog snapshot")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to collect catalog snapshot")
	}

	snap.TakenAt = time.Now().UTC()
	return &snap, nil
}
