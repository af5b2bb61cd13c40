package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/normalize"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// GeneratorConfig bounds the candidate search.
type GeneratorConfig struct {
	MinScore      float64
	MaxPairs      int
	MaxLengthDiff int
}

// Generator scans ingredient usage rows and emits scored merge suggestions.
// Read only; it never touches the store beyond the usage snapshot it is
// given.
type Generator struct {
	cfg    GeneratorConfig
	logger ectologger.Logger
}

func NewGenerator(cfg GeneratorConfig, logger ectologger.Logger) *Generator {
	return &Generator{cfg: cfg, logger: logger}
}

type candidate struct {
	row  models.IngredientUsage
	norm string
}

// Generate buckets the ingredients, compares same-bucket pairs, and returns
// suggestions ordered by score descending then alias usage descending.
func (g *Generator) Generate(ctx context.Context, ingredients []models.IngredientUsage) []models.Suggestion {
	ctx, span := tracing.StartSpan(ctx, "matching.Generator.Generate")
	defer span.End()

	buckets := make(map[string][]candidate)
	var bucketOrder []string
	for _, row := range ingredients {
		if LooksBadKey(row.Key) {
			continue
		}
		norm := normalize.Key(row.Key)
		if norm == "" {
			continue
		}
		b := bucketKey(norm)
		if _, seen := buckets[b]; !seen {
			bucketOrder = append(bucketOrder, b)
		}
		buckets[b] = append(buckets[b], candidate{row: row, norm: norm})
	}
	sort.Strings(bucketOrder)

	var suggestions []models.Suggestion
	pairCount := 0

	for _, b := range bucketOrder {
		items := buckets[b]
		if len(items) < 2 {
			continue
		}

		// popular first so ties favor the widely used identity
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].row.UsedCount > items[j].row.UsedCount
		})

		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				if pairCount >= g.cfg.MaxPairs {
					g.logger.WithContext(ctx).WithFields(map[string]any{
						"pair_cap":    g.cfg.MaxPairs,
						"suggestions": len(suggestions),
					}).Warnf("pair comparison cap reached, stopping early")
					return g.sorted(suggestions)
				}

				a, c := items[i], items[j]

				diff := len(a.norm) - len(c.norm)
				if diff < 0 {
					diff = -diff
				}
				if diff >= g.cfg.MaxLengthDiff {
					continue
				}

				score := Similarity(a.norm, c.norm)
				pairCount++
				if score < g.cfg.MinScore {
					continue
				}

				canonical, alias := a, c
				if !(a.row.UsedCount > c.row.UsedCount ||
					(a.row.UsedCount == c.row.UsedCount && len(a.norm) <= len(c.norm))) {
					canonical, alias = c, a
				}

				if strings.EqualFold(strings.TrimSpace(canonical.row.Key), strings.TrimSpace(alias.row.Key)) {
					continue
				}

				suggestions = append(suggestions, models.Suggestion{
					CanonicalID:   canonical.row.ID,
					CanonicalKey:  canonical.row.Key,
					AliasID:       alias.row.ID,
					AliasKey:      alias.row.Key,
					Score:         score,
					UsedCanonical: canonical.row.UsedCount,
					UsedAlias:     alias.row.UsedCount,
					Reason:        fmt.Sprintf("norm_sim=%.3f bucket=%s", score, bucketKey(canonical.norm)),
				})
			}
		}
	}

	return g.sorted(suggestions)
}

func (g *Generator) sorted(suggestions []models.Suggestion) []models.Suggestion {
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].UsedAlias > suggestions[j].UsedAlias
	})
	return suggestions
}
