// Package events handles event emission for ingredient catalog changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/opencookbook/mortar/pkg/kafka"
	"github.com/opencookbook/mortar/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes catalog change events. A nil producer disables emission,
// so callers never have to branch on whether Kafka is configured.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitIngredientMerged emits an event after an alias ingredient has been
// folded into its canonical ingredient. Emission is best effort: failures are
// logged and never surfaced to the caller, the merge itself already committed.
func (e *Emitter) EmitIngredientMerged(ctx context.Context, canonicalID, aliasID int64, canonicalKey, aliasKey string, score float64) {
	if e == nil || e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitIngredientMerged")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"alias_id":       aliasID,
		"alias_key":      aliasKey,
		"score":          score,
	})

	event := &kafka.CatalogEvent{
		EventType:    "ingredient.merged",
		IngredientID: canonicalID,
		Key:          canonicalKey,
		Data:         data,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit ingredient.merged event")
	}
}

// EmitCollisionResolved emits an event after the rows sharing a normalized
// alias form have been consolidated onto one canonical ingredient.
func (e *Emitter) EmitCollisionResolved(ctx context.Context, canonicalID int64, canonicalKey, aliasNorm string, mergedIDs []int64) {
	if e == nil || e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCollisionResolved")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"alias_norm":     aliasNorm,
		"merged_ids":     mergedIDs,
	})

	event := &kafka.CatalogEvent{
		EventType:    "ingredient.collision_resolved",
		IngredientID: canonicalID,
		Key:          canonicalKey,
		Data:         data,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit ingredient.collision_resolved event")
	}
}
