package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/internal/repositories/ingredientalias"
	"github.com/opencookbook/mortar/internal/repositories/recipe"
	"github.com/opencookbook/mortar/internal/repositories/recipeingredient"
	"github.com/opencookbook/mortar/pkg/collision"
	"github.com/opencookbook/mortar/pkg/events"
	"github.com/opencookbook/mortar/pkg/logging"
	"github.com/opencookbook/mortar/pkg/models"
	"github.com/opencookbook/mortar/pkg/normalize"
)

func TestCollisionResolver_EndToEnd(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	logger := logging.NewNop()

	ingRepo := ingredient.NewRepository(db, logger)
	aliasRepo := ingredientalias.NewRepository(db, logger)
	riRepo := recipeingredient.NewRepository(db, logger)
	recRepo := recipe.NewRepository(db, logger)

	canonicalID, err := ingRepo.GetOrCreate(ctx, "hành lá", normalize.Key("hành lá"))
	require.NoError(t, err)
	donor1, err := ingRepo.GetOrCreate(ctx, "hành lá tươi", normalize.Key("hành lá tươi"))
	require.NoError(t, err)
	donor2, err := ingRepo.GetOrCreate(ctx, "hành lá thái nhỏ", normalize.Key("hành lá thái nhỏ"))
	require.NoError(t, err)

	// both donors also answer to the canonical form
	require.NoError(t, aliasRepo.Insert(ctx, donor1, "hành lá", "hanh la"))
	require.NoError(t, aliasRepo.Insert(ctx, donor2, "hành lá", "hanh la"))

	// donor2 owns nothing but the colliding form, resolving must orphan it
	_, err = db.ExecContext(ctx,
		`DELETE FROM ingredient_aliases WHERE ingredient_id = $1 AND alias_norm <> $2`,
		donor2, "hanh la")
	require.NoError(t, err)

	rec1 := seedRecipe(t, ctx, recRepo, "Canh hành")
	rec2 := seedRecipe(t, ctx, recRepo, "Cháo hành")
	require.NoError(t, riRepo.ReplaceForRecipe(ctx, rec1, []models.RecipeIngredient{
		{IngredientID: donor1, Role: models.RoleCore},
	}))
	require.NoError(t, riRepo.ReplaceForRecipe(ctx, rec2, []models.RecipeIngredient{
		{IngredientID: canonicalID, Role: models.RoleCore},
		{IngredientID: donor2, Role: models.RoleOptional},
	}))

	resolver := collision.NewResolver(logger, ingRepo, aliasRepo, riRepo, events.NewEmitter(nil, logger), 3)
	stats, err := resolver.Resolve(ctx, []models.CollisionDirective{
		{AliasNorm: "hanh la", CanonicalID: canonicalID, CanonicalKey: "hành lá", Decision: "auto"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.AliasNorms)
	assert.Equal(t, 0, stats.FailedGroups)
	assert.EqualValues(t, 2, stats.AliasesMoved)
	assert.EqualValues(t, 1, stats.ConflictRowsDeleted)
	assert.EqualValues(t, 1, stats.RowsRepointed)
	assert.EqualValues(t, 1, stats.IngredientsDeleted)

	rows, err := riRepo.ListByIngredient(ctx, canonicalID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	for _, donorID := range []int64{donor1, donor2} {
		rows, err := riRepo.ListByIngredient(ctx, donorID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	}

	// only the canonical answers to the form now
	others, err := aliasRepo.OtherIngredientIDs(ctx, "hanh la", canonicalID)
	require.NoError(t, err)
	assert.Empty(t, others)

	// donor1 keeps its own form and survives, donor2 was orphaned
	_, err = ingRepo.Get(ctx, donor1)
	require.NoError(t, err)
	_, err = ingRepo.Get(ctx, donor2)
	require.Error(t, err)
}

func TestCollisionResolver_FailedGroupDoesNotAbortSiblings(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	logger := logging.NewNop()

	ingRepo := ingredient.NewRepository(db, logger)
	aliasRepo := ingredientalias.NewRepository(db, logger)
	riRepo := recipeingredient.NewRepository(db, logger)

	donorBad, err := ingRepo.GetOrCreate(ctx, "ớt hiểm tươi", normalize.Key("ớt hiểm tươi"))
	require.NoError(t, err)
	require.NoError(t, aliasRepo.Insert(ctx, donorBad, "ớt hiểm", "ot hiem"))

	goodCanonical, err := ingRepo.GetOrCreate(ctx, "rau om", normalize.Key("rau om"))
	require.NoError(t, err)
	donorGood, err := ingRepo.GetOrCreate(ctx, "rau om tươi", normalize.Key("rau om tươi"))
	require.NoError(t, err)
	require.NoError(t, aliasRepo.Insert(ctx, donorGood, "rau om", "rau om"))

	resolver := collision.NewResolver(logger, ingRepo, aliasRepo, riRepo, events.NewEmitter(nil, logger), 3)
	stats, err := resolver.Resolve(ctx, []models.CollisionDirective{
		// points at an ingredient id that does not exist, the group fails
		{AliasNorm: "ot hiem", CanonicalID: 999999, CanonicalKey: "ớt hiểm", Decision: "auto"},
		{AliasNorm: "rau om", CanonicalID: goodCanonical, CanonicalKey: "rau om", Decision: "auto"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FailedGroups)
	assert.Equal(t, 1, stats.AliasNorms)

	// the failed group rolled back, its donor still owns the form
	badOwners, err := aliasRepo.OtherIngredientIDs(ctx, "ot hiem", 999999)
	require.NoError(t, err)
	assert.Equal(t, []int64{donorBad}, badOwners)

	// the sibling group resolved
	goodOwners, err := aliasRepo.OtherIngredientIDs(ctx, "rau om", goodCanonical)
	require.NoError(t, err)
	assert.Empty(t, goodOwners)
}
