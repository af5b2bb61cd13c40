// Package backfill fills in normalized key forms for legacy ingredient rows.
package backfill

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/pkg/normalize"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// Runner backfills key_norm on ingredients inserted before normalization
// happened at write time
type Runner struct {
	logger         ectologger.Logger
	ingredientRepo *ingredient.Repository
}

// NewRunner creates a new backfill runner
func NewRunner(logger ectologger.Logger, ingredientRepo *ingredient.Repository) *Runner {
	return &Runner{
		logger:         logger,
		ingredientRepo: ingredientRepo,
	}
}

// Run normalizes the key of every ingredient missing key_norm and returns the
// number of updated rows.
func (r *Runner) Run(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "backfill.Runner.Run")
	defer span.End()

	rows, err := r.ingredientRepo.ListMissingKeyNorm(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, row := range rows {
		if err := r.ingredientRepo.UpdateKeyNorm(ctx, row.ID, normalize.Key(row.Key)); err != nil {
			return updated, err
		}
		updated++
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"updated": updated,
	}).Info("Backfilled normalized ingredient keys")

	return updated, nil
}
