// Package pipeline promotes scraped staging recipes into the product catalog.
package pipeline

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/internal/repositories/recipe"
	"github.com/opencookbook/mortar/internal/repositories/recipeingredient"
	"github.com/opencookbook/mortar/internal/repositories/staging"
	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/ingparse"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/normalize"
	"github.com/opencookbook/mortar/pkg/tracing"
)

const (
	maxShortNoteLength = 240
	maxMergedNoteLen   = 200

	defaultTag        = "weekday"
	defaultCategory   = "weekday"
	defaultCookTime   = 15
	defaultDifficulty = "easy"
)

// Ingredient lines opening with these fragments are forum chatter, the
// fragment is stripped before parsing.
var badLinePrefixes = []string{
	"mình có",
	"bạn nào",
	"ai có",
	"nhà mình",
	"ở sg",
	"ở hn",
	"mình ở",
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// PromoterConfig holds promotion tunables
type PromoterConfig struct {
	NamespaceUUID uuid.UUID
	BatchLimit    int
	RetryAttempts int
}

// Promoter turns staging recipes into published recipes with resolved
// ingredient references
type Promoter struct {
	cfg            PromoterConfig
	logger         ectologger.Logger
	parser         *ingparse.Parser
	stagingRepo    *staging.Repository
	recipeRepo     *recipe.Repository
	riRepo         *recipeingredient.Repository
	ingredientRepo *ingredient.Repository
}

// NewPromoter creates a new promoter
func NewPromoter(
	cfg PromoterConfig,
	logger ectologger.Logger,
	parser *ingparse.Parser,
	stagingRepo *staging.Repository,
	recipeRepo *recipe.Repository,
	riRepo *recipeingredient.Repository,
	ingredientRepo *ingredient.Repository,
) *Promoter {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.BatchLimit < 1 {
		cfg.BatchLimit = 1
	}
	return &Promoter{
		cfg:            cfg,
		logger:         logger,
		parser:         parser,
		stagingRepo:    stagingRepo,
		recipeRepo:     recipeRepo,
		riRepo:         riRepo,
		ingredientRepo: ingredientRepo,
	}
}

// PromoteRecent promotes the newest staging recipes up to the batch limit.
// Each recipe gets its own transaction, a bad recipe never sinks the batch.
func (p *Promoter) PromoteRecent(ctx context.Context) (models.BatchSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Promoter.PromoteRecent")
	defer span.End()

	ids, err := p.stagingRepo.ListRecentIDs(ctx, p.cfg.BatchLimit)
	if err != nil {
		return models.BatchSummary{}, err
	}

	var summary models.BatchSummary
	for _, id := range ids {
		promoted, err := p.PromoteOne(ctx, id)
		switch {
		case err != nil:
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"staging_id": id,
			}).Error("Failed to promote staging recipe")
			summary.Fail++
		case promoted:
			summary.OK++
		default:
			summary.Skip++
		}
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"ok":   summary.OK,
		"skip": summary.Skip,
		"fail": summary.Fail,
	}).Info("Promotion batch complete")

	return summary, nil
}

// PromoteOne promotes a single staging recipe. Returns false without error
// when the staging row has disappeared since it was listed.
func (p *Promoter) PromoteOne(ctx context.Context, stagingID int64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Promoter.PromoteOne")
	defer span.End()

	staged, err := p.stagingRepo.GetRecipe(ctx, stagingID)
	if err != nil {
		if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound {
			p.logger.WithContext(ctx).WithFields(map[string]any{
				"staging_id": stagingID,
			}).Debug("Staging recipe gone, skipping")
			return false, nil
		}
		return false, err
	}

	name := strings.TrimSpace(staged.Name)
	if name == "" {
		name = "Recipe " + strconv.FormatInt(stagingID, 10)
	}

	steps, err := p.stagingRepo.ListSteps(ctx, stagingID)
	if err != nil {
		return false, err
	}

	lines, err := p.stagingRepo.ListIngredientTexts(ctx, stagingID)
	if err != nil {
		return false, err
	}

	recipeID := RecipeUUID(p.cfg.NamespaceUUID, staged.Source, staged.Locale, stagingID)

	err = database.WithTxRetry(ctx, p.recipeRepo.DB(), p.logger, p.cfg.RetryAttempts, func(ctxTx context.Context) error {
		rec := &models.Recipe{
			ID:              recipeID,
			Name:            name,
			Slug:            Slugify(name) + "-" + strconv.FormatInt(stagingID, 10),
			Tag:             defaultTag,
			Category:        defaultCategory,
			CookTimeMinutes: defaultCookTime,
			Difficulty:      defaultDifficulty,
			ImageURL:        staged.HeroImage,
			ShortNote:       shortNote(staged.Description),
			IsActive:        false,
		}
		if err := p.recipeRepo.Upsert(ctxTx, rec); err != nil {
			return err
		}

		recipeSteps := make([]models.RecipeStep, 0, len(steps))
		for i, s := range steps {
			recipeSteps = append(recipeSteps, models.RecipeStep{
				RecipeID: recipeID,
				StepNo:   i + 1,
				Content:  s.StepText,
			})
		}
		if err := p.recipeRepo.ReplaceSteps(ctxTx, recipeID, recipeSteps); err != nil {
			return err
		}

		rows, err := p.resolveIngredients(ctxTx, recipeID, lines)
		if err != nil {
			return err
		}
		if err := p.riRepo.ReplaceForRecipe(ctxTx, recipeID, rows); err != nil {
			return err
		}

		active := len(recipeSteps) >= 3 && len(rows) >= 4 && len([]rune(name)) >= 10
		return p.recipeRepo.SetActive(ctxTx, recipeID, active)
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// resolveIngredients parses raw lines, resolves each mention to an ingredient
// id and collapses repeat mentions of the same ingredient into one row.
func (p *Promoter) resolveIngredients(ctx context.Context, recipeID uuid.UUID, lines []string) ([]models.RecipeIngredient, error) {
	byIngredient := make(map[int64]int)
	var rows []models.RecipeIngredient

	for _, line := range lines {
		line = StripBadPrefix(line)
		if LooksLikeSentence(line) {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, item := range p.parser.Parse(line) {
			id, err := p.ingredientRepo.GetOrCreate(ctx, item.Key, item.AliasNorm)
			if err != nil {
				return nil, err
			}

			row := models.RecipeIngredient{
				RecipeID:     recipeID,
				IngredientID: id,
				Amount:       item.Amount,
				Unit:         item.Unit,
				Note:         item.Note,
				Role:         item.Role,
			}

			idx, seen := byIngredient[id]
			if !seen {
				byIngredient[id] = len(rows)
				rows = append(rows, row)
				continue
			}

			existing := &rows[idx]
			if existing.Role != models.RoleCore && row.Role == models.RoleCore {
				existing.Role = models.RoleCore
			}
			if !existing.Amount.Valid && row.Amount.Valid {
				existing.Amount = row.Amount
				existing.Unit = row.Unit
			}
			existing.Note = mergeNote(existing.Note, row.Note)
		}
	}

	return rows, nil
}

// StripBadPrefix removes a leading chat fragment from an ingredient line.
// Forum posts often open with "mình có 2kg ..." where only the tail is an
// ingredient mention.
func StripBadPrefix(line string) string {
	lower := strings.ToLower(line)
	for _, prefix := range badLinePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return line
}

// LooksLikeSentence reports whether a line reads like prose rather than an
// ingredient mention. Such lines are dropped before parsing.
func LooksLikeSentence(line string) bool {
	return len(strings.Fields(line)) > 8
}

// Slugify derives a URL slug from a recipe name. Falls back to "recipe" when
// nothing survives normalization.
func Slugify(name string) string {
	slug := slugStrip.ReplaceAllString(normalize.Key(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "recipe"
	}
	return slug
}

// RecipeUUID derives a stable recipe id from the staging identity, so
// re-promoting the same staging row always targets the same recipe.
func RecipeUUID(namespace uuid.UUID, source, locale string, stagingID int64) uuid.UUID {
	seed := source + ":" + locale + ":" + strconv.FormatInt(stagingID, 10)
	return uuid.NewSHA1(namespace, []byte(seed))
}

func shortNote(description *string) *string {
	if description == nil {
		return nil
	}
	s := strings.TrimSpace(*description)
	if s == "" {
		return nil
	}
	runes := []rune(s)
	if len(runes) > maxShortNoteLength {
		s = string(runes[:maxShortNoteLength-1]) + "…"
	}
	return &s
}

func mergeNote(existing, incoming *string) *string {
	var parts []string
	seen := make(map[string]bool)
	for _, src := range []*string{existing, incoming} {
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
	if runes := []rune(merged); len(runes) > maxMergedNoteLen {
		merged = string(runes[:maxMergedNoteLen])
	}
	return &merged
}
