package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencookbook/mortar/pkg/logging"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/normalize"
)

func newTestGenerator(cfg GeneratorConfig) *Generator {
	if cfg.MinScore == 0 {
		cfg.MinScore = 0.92
	}
	if cfg.MaxPairs == 0 {
		cfg.MaxPairs = 200000
	}
	if cfg.MaxLengthDiff == 0 {
		cfg.MaxLengthDiff = 8
	}
	return NewGenerator(cfg, logging.NewNop())
}

func TestGenerate_DiacriticVariantPair(t *testing.T) {
	ingredients := []models.IngredientUsage{
		{ID: 1, Key: "bột ngọt", UsedCount: 12},
		{ID: 2, Key: "bot ngot", UsedCount: 3},
		{ID: 3, Key: "cà chua", UsedCount: 7},
	}

	got := newTestGenerator(GeneratorConfig{}).Generate(context.Background(), ingredients)
	require.Len(t, got, 1)

	s := got[0]
	assert.Equal(t, int64(1), s.CanonicalID)
	assert.Equal(t, int64(2), s.AliasID)
	assert.Equal(t, 1.0, s.Score)
	assert.Equal(t, int64(12), s.UsedCanonical)
	assert.Equal(t, int64(3), s.UsedAlias)
	assert.Contains(t, s.Reason, "norm_sim=")
}

func TestGenerate_SuggestionInvariants(t *testing.T) {
	ingredients := []models.IngredientUsage{
		{ID: 1, Key: "hành lá", UsedCount: 5},
		{ID: 2, Key: "hanh la", UsedCount: 5},
		{ID: 3, Key: "hành lá tươi", UsedCount: 2},
		{ID: 4, Key: "nước mắm", UsedCount: 9},
		{ID: 5, Key: "nuoc mam", UsedCount: 1},
	}

	cfg := GeneratorConfig{MinScore: 0.92, MaxPairs: 200000, MaxLengthDiff: 8}
	got := newTestGenerator(cfg).Generate(context.Background(), ingredients)
	require.NotEmpty(t, got)

	for _, s := range got {
		assert.GreaterOrEqual(t, s.Score, cfg.MinScore)
		if s.UsedCanonical == s.UsedAlias {
			canonNorm := normalize.Key(s.CanonicalKey)
			aliasNorm := normalize.Key(s.AliasKey)
			assert.LessOrEqual(t, len(canonNorm), len(aliasNorm))
		} else {
			assert.Greater(t, s.UsedCanonical, s.UsedAlias)
		}
	}

	for i := 1; i < len(got); i++ {
		if got[i-1].Score == got[i].Score {
			assert.GreaterOrEqual(t, got[i-1].UsedAlias, got[i].UsedAlias)
		} else {
			assert.Greater(t, got[i-1].Score, got[i].Score)
		}
	}
}

func TestGenerate_SkipsBadAndIdenticalKeys(t *testing.T) {
	ingredients := []models.IngredientUsage{
		{ID: 1, Key: "muối 3", UsedCount: 5},
		{ID: 2, Key: "muối", UsedCount: 5},
		{ID: 3, Key: "Muối", UsedCount: 1},
	}

	got := newTestGenerator(GeneratorConfig{}).Generate(context.Background(), ingredients)
	// "muối 3" is disqualified, "muối" vs "Muối" is identical after trim and
	// casefold, so nothing remains.
	assert.Empty(t, got)
}

func TestGenerate_LengthDiffCutoff(t *testing.T) {
	ingredients := []models.IngredientUsage{
		{ID: 1, Key: "ga", UsedCount: 5},
		{ID: 2, Key: "ga nuong mat ong x", UsedCount: 1},
	}

	got := newTestGenerator(GeneratorConfig{}).Generate(context.Background(), ingredients)
	assert.Empty(t, got)
}

func TestGenerate_PairCapStopsEarly(t *testing.T) {
	ingredients := []models.IngredientUsage{
		{ID: 1, Key: "hanh la", UsedCount: 9},
		{ID: 2, Key: "hành lá", UsedCount: 5},
		{ID: 3, Key: "hanh lá", UsedCount: 1},
	}

	got := newTestGenerator(GeneratorConfig{MaxPairs: 1}).Generate(context.Background(), ingredients)
	assert.LessOrEqual(t, len(got), 1)
}
