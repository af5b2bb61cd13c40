// Package collision consolidates ingredients that share a normalized alias form.
package collision

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/internal/repositories/ingredientalias"
	"github.com/opencookbook/mortar/internal/repositories/recipeingredient"
	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/events"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// Stats accumulates counters across a resolution run
type Stats struct {
	AliasNorms          int   `json:"alias_norms"`
	SkippedManual       int   `json:"skipped_manual"`
	FailedGroups        int   `json:"failed_groups"`
	AliasesMoved        int64 `json:"aliases_moved"`
	ConflictRowsDeleted int64 `json:"conflict_rows_deleted"`
	RowsRepointed       int64 `json:"rows_repointed"`
	IngredientsDeleted  int64 `json:"ingredients_deleted"`
}

// Resolver repoints every ingredient sharing a normalized alias form onto the
// chosen canonical ingredient
type Resolver struct {
	logger         ectologger.Logger
	ingredientRepo *ingredient.Repository
	aliasRepo      *ingredientalias.Repository
	riRepo         *recipeingredient.Repository
	emitter        *events.Emitter
	retryAttempts  int
}

// NewResolver creates a new collision resolver
func NewResolver(
	logger ectologger.Logger,
	ingredientRepo *ingredient.Repository,
	aliasRepo *ingredientalias.Repository,
	riRepo *recipeingredient.Repository,
	emitter *events.Emitter,
	retryAttempts int,
) *Resolver {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Resolver{
		logger:         logger,
		ingredientRepo: ingredientRepo,
		aliasRepo:      aliasRepo,
		riRepo:         riRepo,
		emitter:        emitter,
		retryAttempts:  retryAttempts,
	}
}

// Resolve processes the reviewed collision directives. Only rows whose
// decision is "auto" are applied, everything else counts as skipped. Each
// normalized form gets its own transaction so one failure never rolls back
// the others.
func (r *Resolver) Resolve(ctx context.Context, directives []models.CollisionDirective) (Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "collision.Resolver.Resolve")
	defer span.End()

	var stats Stats
	for _, d := range directives {
		if strings.TrimSpace(d.Decision) != "auto" {
			stats.SkippedManual++
			continue
		}
		if strings.TrimSpace(d.AliasNorm) == "" || d.CanonicalID == 0 {
			stats.SkippedManual++
			continue
		}

		groupStats, mergedIDs, err := r.resolveGroup(ctx, d)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"alias_norm":   d.AliasNorm,
				"canonical_id": d.CanonicalID,
			}).Error("Failed to resolve alias norm collision")
			stats.FailedGroups++
			continue
		}

		stats.AliasNorms++
		stats.AliasesMoved += groupStats.AliasesMoved
		stats.ConflictRowsDeleted += groupStats.ConflictRowsDeleted
		stats.RowsRepointed += groupStats.RowsRepointed
		stats.IngredientsDeleted += groupStats.IngredientsDeleted

		if len(mergedIDs) > 0 {
			r.emitter.EmitCollisionResolved(ctx, d.CanonicalID, d.CanonicalKey, d.AliasNorm, mergedIDs)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"alias_norms":           stats.AliasNorms,
		"skipped_manual":        stats.SkippedManual,
		"failed_groups":         stats.FailedGroups,
		"aliases_moved":         stats.AliasesMoved,
		"conflict_rows_deleted": stats.ConflictRowsDeleted,
		"rows_repointed":        stats.RowsRepointed,
		"ingredients_deleted":   stats.IngredientsDeleted,
	}).Info("Resolved alias norm collisions")

	return stats, nil
}

// resolveGroup moves every other owner of the normalized form onto the
// canonical ingredient inside one retried transaction.
func (r *Resolver) resolveGroup(ctx context.Context, d models.CollisionDirective) (Stats, []int64, error) {
	ctx, span := tracing.StartSpan(ctx, "collision.Resolver.resolveGroup")
	defer span.End()

	var stats Stats
	var mergedIDs []int64

	err := database.WithTxRetry(ctx, r.ingredientRepo.DB(), r.logger, r.retryAttempts, func(ctxTx context.Context) error {
		stats = Stats{}
		mergedIDs = nil

		otherIDs, err := r.aliasRepo.OtherIngredientIDs(ctxTx, d.AliasNorm, d.CanonicalID)
		if err != nil {
			return err
		}

		for _, otherID := range otherIDs {
			deleted, err := r.riRepo.DeleteConflicting(ctxTx, otherID, d.CanonicalID)
			if err != nil {
				return err
			}
			stats.ConflictRowsDeleted += deleted

			repointed, err := r.riRepo.RepointAll(ctxTx, d.CanonicalID, otherID)
			if err != nil {
				return err
			}
			stats.RowsRepointed += repointed

			moved, err := r.aliasRepo.MoveNormToCanonical(ctxTx, d.AliasNorm, otherID, d.CanonicalID)
			if err != nil {
				return err
			}
			stats.AliasesMoved += moved

			gone, err := r.ingredientRepo.DeleteIfOrphaned(ctxTx, otherID)
			if err != nil {
				return err
			}
			if gone {
				stats.IngredientsDeleted++
			}

			mergedIDs = append(mergedIDs, otherID)
		}

		return nil
	})
	if err != nil {
		return Stats{}, nil, err
	}

	return stats, mergedIDs, nil
}
