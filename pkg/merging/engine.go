// Package merging folds approved alias ingredients into their canonical rows.
package merging

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"

	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/internal/repositories/ingredientalias"
	"github.com/opencookbook/mortar/internal/repositories/recipeingredient"
	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/events"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/normalize"
	"github.com/opencookbook/mortar/pkg/tracing"
)

const maxNoteLength = 200

// Engine applies approved merge suggestions
type Engine struct {
	logger         ectologger.Logger
	ingredientRepo *ingredient.Repository
	aliasRepo      *ingredientalias.Repository
	riRepo         *recipeingredient.Repository
	emitter        *events.Emitter
	retryAttempts  int
}

// NewEngine creates a new merge engine
func NewEngine(
	logger ectologger.Logger,
	ingredientRepo *ingredient.Repository,
	aliasRepo *ingredientalias.Repository,
	riRepo *recipeingredient.Repository,
	emitter *events.Emitter,
	retryAttempts int,
) *Engine {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Engine{
		logger:         logger,
		ingredientRepo: ingredientRepo,
		aliasRepo:      aliasRepo,
		riRepo:         riRepo,
		emitter:        emitter,
		retryAttempts:  retryAttempts,
	}
}

// ApplyApproved applies every approved suggestion, one transaction per pair.
// A failed pair is logged and counted, it never blocks the remaining pairs.
func (e *Engine) ApplyApproved(ctx context.Context, suggestions []models.Suggestion) models.BatchSummary {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.ApplyApproved")
	defer span.End()

	var summary models.BatchSummary
	for _, s := range suggestions {
		if !s.Approved {
			summary.Skip++
			continue
		}
		if s.CanonicalID == s.AliasID {
			summary.Skip++
			continue
		}

		if err := e.ApplyPair(ctx, s); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"canonical_id": s.CanonicalID,
				"alias_id":     s.AliasID,
			}).Error("Failed to apply merge pair")
			summary.Fail++
			continue
		}
		summary.OK++
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"ok":   summary.OK,
		"skip": summary.Skip,
		"fail": summary.Fail,
	}).Info("Applied approved merge suggestions")

	return summary
}

// ApplyPair merges one alias ingredient into its canonical ingredient.
//
// In one transaction: the alias key is recorded on the canonical, recipes
// referencing both sides have their rows combined, remaining references are
// repointed, the alias row's own aliases move over, and the alias ingredient
// is removed once nothing references it. Re-running a pair is a no-op.
func (e *Engine) ApplyPair(ctx context.Context, s models.Suggestion) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.ApplyPair")
	defer span.End()

	err := database.WithTxRetry(ctx, e.ingredientRepo.DB(), e.logger, e.retryAttempts, func(ctxTx context.Context) error {
		return e.applyPairTx(ctxTx, s)
	})
	if err != nil {
		return err
	}

	e.emitter.EmitIngredientMerged(ctx, s.CanonicalID, s.AliasID, s.CanonicalKey, s.AliasKey, s.Score)
	return nil
}

func (e *Engine) applyPairTx(ctx context.Context, s models.Suggestion) error {
	if err := e.aliasRepo.Insert(ctx, s.CanonicalID, s.AliasKey, normalize.Key(s.AliasKey)); err != nil {
		return err
	}

	conflicts, err := e.riRepo.ListConflicts(ctx, s.CanonicalID, s.AliasID)
	if err != nil {
		return err
	}

	for _, c := range conflicts {
		amount := coalesceAmount(c.CanonicalAmount, c.AliasAmount)
		unit := coalesceString(c.CanonicalUnit, c.AliasUnit)
		note := mergeNotes(c.CanonicalNote, c.AliasNote)
		role := pickRole(c.CanonicalRole, c.AliasRole)

		if err := e.riRepo.UpdateFields(ctx, c.RecipeID, s.CanonicalID, amount, unit, note, role); err != nil {
			return err
		}
		if err := e.riRepo.Delete(ctx, c.RecipeID, s.AliasID); err != nil {
			return err
		}
	}

	repointed, err := e.riRepo.RepointNonConflicting(ctx, s.CanonicalID, s.AliasID)
	if err != nil {
		return err
	}

	moved, err := e.aliasRepo.MoveAllToCanonical(ctx, s.AliasID, s.CanonicalID)
	if err != nil {
		return err
	}

	deleted, err := e.ingredientRepo.DeleteIfOrphaned(ctx, s.AliasID)
	if err != nil {
		return err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"canonical_id":     s.CanonicalID,
		"alias_id":         s.AliasID,
		"conflicts_merged": len(conflicts),
		"rows_repointed":   repointed,
		"aliases_moved":    moved,
		"alias_deleted":    deleted,
	}).Info("Merged alias ingredient into canonical")

	return nil
}

// pickRole keeps core when either side is core.
func pickRole(canonical, alias string) string {
	if canonical == models.RoleCore || alias == models.RoleCore {
		return models.RoleCore
	}
	return models.RoleOptional
}

func coalesceAmount(canonical, alias decimal.NullDecimal) decimal.NullDecimal {
	if canonical.Valid {
		return canonical
	}
	return alias
}

func coalesceString(canonical, alias *string) *string {
	if canonical != nil && *canonical != "" {
		return canonical
	}
	return alias
}

// mergeNotes joins both notes with "; ", dropping case-insensitive duplicates
// while keeping the canonical note's parts first. The result is capped at
// maxNoteLength runes.
func mergeNotes(canonical, alias *string) *string {
	var parts []string
	seen := make(map[string]bool)
	for _, src := range []*string{canonical, alias} {
		if src == nil {
			continue
		}
		for _, p := range strings.Split(*src, ";") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			folded := strings.ToLower(p)
			if seen[folded] {
				continue
			}
			seen[folded] = true
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	merged := strings.Join(parts, "; ")
	if runes := []rune(merged); len(runes) > maxNoteLength {
		merged = string(runes[:maxNoteLength])
	}
	return &merged
}
