package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/internal/repositories/recipe"
	"github.com/opencookbook/mortar/internal/repositories/recipeingredient"
	"github.com/opencookbook/mortar/internal/repositories/staging"
	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/ingparse"
	"github.com/opencookbook/mortar/pkg/logging"
	"github.com/opencookbook/mortar/pkg/pipeline"
)

// seedStagingSchema creates the scrape-side tables. In production they live
// in a separate database, the test keeps them next to the product schema.
func seedStagingSchema(t *testing.T, ctx context.Context, db database.DB) {
	t.Helper()

	ddl := []string{
		`CREATE TABLE stg_recipes (
			recipe_id BIGINT PRIMARY KEY,
			source TEXT NOT NULL,
			locale TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			description TEXT,
			hero_image TEXT
		)`,
		`CREATE TABLE stg_recipe_steps (
			recipe_id BIGINT NOT NULL,
			step_index INT NOT NULL,
			step_text TEXT NOT NULL
		)`,
		`CREATE TABLE stg_recipe_ingredients (
			recipe_id BIGINT NOT NULL,
			ingredient_index INT NOT NULL,
			ingredient_text TEXT NOT NULL
		)`,
	}
	for _, q := range ddl {
		_, err := db.ExecContext(ctx, q)
		require.NoError(t, err)
	}
}

func TestPromoter_EndToEnd(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	logger := logging.NewNop()

	seedStagingSchema(t, ctx, db)

	const stagingID = int64(7)
	_, err := db.ExecContext(ctx, `
		INSERT INTO stg_recipes (recipe_id, source, locale, name, description)
		VALUES ($1, 'forum', 'vi', 'Phở gà Hà Nội', 'Món nước cho sáng cuối tuần.')
	`, stagingID)
	require.NoError(t, err)

	for i, step := range []string{"Luộc gà", "Nấu nước dùng", "Chan phở"} {
		_, err := db.ExecContext(ctx, `
			INSERT INTO stg_recipe_steps (recipe_id, step_index, step_text)
			VALUES ($1, $2, $3)
		`, stagingID, i, step)
		require.NoError(t, err)
	}

	lines := []string{
		"200g thịt gà",
		"1 củ hành",
		// chatter prefix is stripped, the tail still parses
		"mình có 2kg xương gà",
		// prose lines are dropped entirely
		"hôm nay trời đẹp mình muốn nấu món thật ngon cho cả nhà",
		"bánh phở",
	}
	for i, line := range lines {
		_, err := db.ExecContext(ctx, `
			INSERT INTO stg_recipe_ingredients (recipe_id, ingredient_index, ingredient_text)
			VALUES ($1, $2, $3)
		`, stagingID, i, line)
		require.NoError(t, err)
	}

	ingRepo := ingredient.NewRepository(db, logger)
	riRepo := recipeingredient.NewRepository(db, logger)
	ns := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	promoter := pipeline.NewPromoter(
		pipeline.PromoterConfig{NamespaceUUID: ns, BatchLimit: 10, RetryAttempts: 1},
		logger,
		ingparse.NewParser(ingparse.DefaultVocabulary()),
		staging.NewRepository(db, logger),
		recipe.NewRepository(db, logger),
		riRepo,
		ingRepo,
	)

	promoted, err := promoter.PromoteOne(ctx, stagingID)
	require.NoError(t, err)
	assert.True(t, promoted)

	recipeID := pipeline.RecipeUUID(ns, "forum", "vi", stagingID)

	var got struct {
		Name     string `db:"name"`
		Slug     string `db:"slug"`
		IsActive bool   `db:"is_active"`
	}
	require.NoError(t, db.GetContext(ctx, &got,
		`SELECT name, slug, is_active FROM recipes WHERE id = $1`, recipeID))
	assert.Equal(t, "Phở gà Hà Nội", got.Name)
	assert.Equal(t, "pho-ga-ha-noi-7", got.Slug)
	assert.True(t, got.IsActive)

	var keys []string
	require.NoError(t, db.SelectContext(ctx, &keys, `
		SELECT i.key
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = $1
		ORDER BY i.key
	`, recipeID))
	assert.ElementsMatch(t, []string{"thịt gà", "hành", "xương gà", "bánh phở"}, keys)

	// re-promotion lands on the same recipe with the same rows
	promoted, err = promoter.PromoteOne(ctx, stagingID)
	require.NoError(t, err)
	assert.True(t, promoted)

	var count int
	require.NoError(t, db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM recipe_ingredients WHERE recipe_id = $1`, recipeID))
	assert.Equal(t, 4, count)

	// a vanished staging row is a skip, not an error
	promoted, err = promoter.PromoteOne(ctx, int64(999))
	require.NoError(t, err)
	assert.False(t, promoted)
}
