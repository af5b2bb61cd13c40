package integration

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/opencookbook/mortar/internal/repositories/recipe"
	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/logging"
	"github.com/opencookbook/mortar/pkg/models"
)

// setupDatabase starts a disposable Postgres container, applies the
// migrations and returns a connected handle. The container is torn down when
// the test finishes.
func setupDatabase(t *testing.T) database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping container-backed test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "user",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "mortar",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf(
		"host=%s port=%s user=user password=password dbname=mortar sslmode=disable",
		host, port.Port(),
	)
	logger := logging.NewNop()

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	require.NoError(t, err)
	require.NoError(t, database.NewMigrationService(logger, "../../db/pg").Migrate("mortar", driver))
	require.NoError(t, sqlDB.Close())

	db, err := database.Connect(ctx, dsn, database.ConnectOptions{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func seedRecipe(t *testing.T, ctx context.Context, repo *recipe.Repository, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.NoError(t, repo.Upsert(ctx, &models.Recipe{
		ID:              id,
		Name:            name,
		Slug:            name + "-" + id.String()[:8],
		Tag:             "weekday",
		Category:        "weekday",
		CookTimeMinutes: 15,
		Difficulty:      "easy",
	}))
	return id
}

func strPtr(s string) *string {
	return &s
}
