// Package monitor periodically reports catalog health counters.
package monitor

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/opencookbook/mortar/internal/repositories/metrics"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// Monitor samples catalog counters on a fixed interval
type Monitor struct {
	logger      ectologger.Logger
	metricsRepo *metrics.Repository
	interval    time.Duration
}

// NewMonitor creates a new monitor
func NewMonitor(logger ectologger.Logger, metricsRepo *metrics.Repository, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		logger:      logger,
		metricsRepo: metricsRepo,
		interval:    interval,
	}
}

// Run samples immediately, then on every tick until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.sample(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *Monitor) sample(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "monitor.Monitor.sample")
	defer span.End()

	snap, err := m.metricsRepo.Snapshot(ctx)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Error("Failed to sample catalog snapshot")
		return
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"recipes_total":          snap.RecipesTotal,
		"recipes_active":         snap.RecipesActive,
		"recipes_inactive":       snap.RecipesInactive,
		"recipes_last_24h":       snap.RecipesLast24h,
		"ingredients_total":      snap.IngredientsTotal,
		"ingredients_last_24h":   snap.IngredientsLast24h,
		"ingredients_with_digit": snap.IngredientsWithDigit,
		"ingredients_long_key":   snap.IngredientsLongKey,
		"recipe_ingredient_rows": snap.RecipeIngredientRows,
	}).Info("Catalog snapshot")
}
