package collision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opencookbook/mortar/pkg/logging"
	"github.com/opencookbook/mortar/pkg/models"
)

func TestResolveSkipsNonAutoDirectives(t *testing.T) {
	resolver := NewResolver(logging.NewNop(), nil, nil, nil, nil, 3)

	directives := []models.CollisionDirective{
		{AliasNorm: "thit ga", CanonicalID: 1, Decision: "manual"},
		{AliasNorm: "thit ga", CanonicalID: 1, Decision: ""},
		{AliasNorm: "", CanonicalID: 1, Decision: "auto"},
		{AliasNorm: "thit ga", CanonicalID: 0, Decision: "auto"},
	}

	stats, err := resolver.Resolve(context.Background(), directives)
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.AliasNorms)
	assert.Equal(t, 4, stats.SkippedManual)
}

func TestResolveTrimsDecision(t *testing.T) {
	resolver := NewResolver(logging.NewNop(), nil, nil, nil, nil, 3)

	// A padded manual decision must not be treated as auto.
	stats, err := resolver.Resolve(context.Background(), []models.CollisionDirective{
		{AliasNorm: "nuoc mam", CanonicalID: 7, Decision: " manual "},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.SkippedManual)
}
