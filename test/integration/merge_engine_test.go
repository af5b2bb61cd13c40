package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/internal/repositories/ingredientalias"
	"github.com/opencookbook/mortar/internal/repositories/recipe"
	"github.com/opencookbook/mortar/internal/repositories/recipeingredient"
	"github.com/opencookbook/mortar/pkg/events"
	"github.com/opencookbook/mortar/pkg/logging"
	"github.com/opencookbook/mortar/pkg/merging"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/normalize"
)

func TestMergeEngine_EndToEnd(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	logger := logging.NewNop()

	ingRepo := ingredient.NewRepository(db, logger)
	aliasRepo := ingredientalias.NewRepository(db, logger)
	riRepo := recipeingredient.NewRepository(db, logger)
	recRepo := recipe.NewRepository(db, logger)

	canonicalID, err := ingRepo.GetOrCreate(ctx, "thịt gà", normalize.Key("thịt gà"))
	require.NoError(t, err)
	aliasID, err := ingRepo.GetOrCreate(ctx, "thit ga ta", normalize.Key("thit ga ta"))
	require.NoError(t, err)
	require.NotEqual(t, canonicalID, aliasID)

	soloRecipe := seedRecipe(t, ctx, recRepo, "Gà kho gừng")
	bothRecipe := seedRecipe(t, ctx, recRepo, "Phở gà")

	require.NoError(t, riRepo.ReplaceForRecipe(ctx, soloRecipe, []models.RecipeIngredient{
		{
			IngredientID: aliasID,
			Amount:       decimal.NullDecimal{Decimal: decimal.NewFromInt(300), Valid: true},
			Unit:         strPtr("g"),
			Role:         models.RoleCore,
		},
	}))
	require.NoError(t, riRepo.ReplaceForRecipe(ctx, bothRecipe, []models.RecipeIngredient{
		{
			IngredientID: canonicalID,
			Amount:       decimal.NullDecimal{Decimal: decimal.NewFromInt(200), Valid: true},
			Unit:         strPtr("g"),
			Note:         strPtr("bỏ da"),
			Role:         models.RoleOptional,
		},
		{
			IngredientID: aliasID,
			Note:         strPtr("thái lát"),
			Role:         models.RoleCore,
		},
	}))

	engine := merging.NewEngine(logger, ingRepo, aliasRepo, riRepo, events.NewEmitter(nil, logger), 1)
	pair := models.Suggestion{
		CanonicalID:  canonicalID,
		CanonicalKey: "thịt gà",
		AliasID:      aliasID,
		AliasKey:     "thit ga ta",
		Score:        0.95,
		Approved:     true,
	}
	require.NoError(t, engine.ApplyPair(ctx, pair))

	rows, err := riRepo.ListByIngredient(ctx, aliasID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = riRepo.ListByIngredient(ctx, canonicalID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byRecipe := make(map[uuid.UUID]models.RecipeIngredient, len(rows))
	for _, row := range rows {
		byRecipe[row.RecipeID] = row
	}

	merged := byRecipe[bothRecipe]
	require.True(t, merged.Amount.Valid)
	assert.True(t, merged.Amount.Decimal.Equal(decimal.NewFromInt(200)))
	require.NotNil(t, merged.Note)
	assert.Contains(t, *merged.Note, "bỏ da")
	assert.Contains(t, *merged.Note, "thái lát")
	assert.Equal(t, models.RoleCore, merged.Role)

	repointed := byRecipe[soloRecipe]
	require.True(t, repointed.Amount.Valid)
	assert.True(t, repointed.Amount.Decimal.Equal(decimal.NewFromInt(300)))

	aliases, err := aliasRepo.ListByIngredient(ctx, canonicalID)
	require.NoError(t, err)
	norms := make([]string, 0, len(aliases))
	for _, a := range aliases {
		norms = append(norms, a.AliasNorm)
	}
	assert.Contains(t, norms, normalize.Key("thit ga ta"))

	_, err = ingRepo.Get(ctx, aliasID)
	require.Error(t, err)
}

func TestMergeEngine_ApplyTwiceEqualsApplyOnce(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	logger := logging.NewNop()

	ingRepo := ingredient.NewRepository(db, logger)
	aliasRepo := ingredientalias.NewRepository(db, logger)
	riRepo := recipeingredient.NewRepository(db, logger)
	recRepo := recipe.NewRepository(db, logger)

	canonicalID, err := ingRepo.GetOrCreate(ctx, "nước mắm", normalize.Key("nước mắm"))
	require.NoError(t, err)
	aliasID, err := ingRepo.GetOrCreate(ctx, "nuoc mam ngon", normalize.Key("nuoc mam ngon"))
	require.NoError(t, err)

	recipeID := seedRecipe(t, ctx, recRepo, "Cá kho tộ")
	require.NoError(t, riRepo.ReplaceForRecipe(ctx, recipeID, []models.RecipeIngredient{
		{
			IngredientID: aliasID,
			Amount:       decimal.NullDecimal{Decimal: decimal.NewFromInt(2), Valid: true},
			Unit:         strPtr("muỗng canh"),
			Role:         models.RoleCore,
		},
	}))

	engine := merging.NewEngine(logger, ingRepo, aliasRepo, riRepo, events.NewEmitter(nil, logger), 1)
	pair := models.Suggestion{
		CanonicalID:  canonicalID,
		CanonicalKey: "nước mắm",
		AliasID:      aliasID,
		AliasKey:     "nuoc mam ngon",
		Score:        0.93,
		Approved:     true,
	}

	require.NoError(t, engine.ApplyPair(ctx, pair))
	firstRows, err := riRepo.ListByIngredient(ctx, canonicalID)
	require.NoError(t, err)
	firstAliases, err := aliasRepo.ListByIngredient(ctx, canonicalID)
	require.NoError(t, err)

	require.NoError(t, engine.ApplyPair(ctx, pair))
	secondRows, err := riRepo.ListByIngredient(ctx, canonicalID)
	require.NoError(t, err)
	secondAliases, err := aliasRepo.ListByIngredient(ctx, canonicalID)
	require.NoError(t, err)

	assert.Equal(t, firstRows, secondRows)
	assert.Equal(t, firstAliases, secondAliases)

	rows, err := riRepo.ListByIngredient(ctx, aliasID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
