package merging

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/opencookbook/mortar/pkg/logging"
	"github.com/opencookbook/mortar/pkg/models"
)

func strPtr(s string) *string {
	return &s
}

func TestPickRole(t *testing.T) {
	assert.Equal(t, models.RoleCore, pickRole(models.RoleCore, models.RoleOptional))
	assert.Equal(t, models.RoleCore, pickRole(models.RoleOptional, models.RoleCore))
	assert.Equal(t, models.RoleCore, pickRole(models.RoleCore, models.RoleCore))
	assert.Equal(t, models.RoleOptional, pickRole(models.RoleOptional, models.RoleOptional))
}

func TestCoalesceAmount(t *testing.T) {
	canonical := decimal.NullDecimal{Decimal: decimal.NewFromInt(200), Valid: true}
	alias := decimal.NullDecimal{Decimal: decimal.NewFromInt(100), Valid: true}
	none := decimal.NullDecimal{}

	assert.Equal(t, canonical, coalesceAmount(canonical, alias))
	assert.Equal(t, alias, coalesceAmount(none, alias))
	assert.False(t, coalesceAmount(none, none).Valid)
}

func TestCoalesceString(t *testing.T) {
	assert.Equal(t, "g", *coalesceString(strPtr("g"), strPtr("kg")))
	assert.Equal(t, "kg", *coalesceString(nil, strPtr("kg")))
	assert.Equal(t, "kg", *coalesceString(strPtr(""), strPtr("kg")))
	assert.Nil(t, coalesceString(nil, nil))
}

func TestMergeNotes(t *testing.T) {
	tests := []struct {
		name      string
		canonical *string
		alias     *string
		want      *string
	}{
		{
			name:      "both nil",
			canonical: nil,
			alias:     nil,
			want:      nil,
		},
		{
			name:      "canonical only",
			canonical: strPtr("bỏ da"),
			alias:     nil,
			want:      strPtr("bỏ da"),
		},
		{
			name:      "distinct notes joined canonical first",
			canonical: strPtr("bỏ da"),
			alias:     strPtr("thái lát"),
			want:      strPtr("bỏ da; thái lát"),
		},
		{
			name:      "duplicate note kept once",
			canonical: strPtr("bỏ da"),
			alias:     strPtr("bỏ da"),
			want:      strPtr("bỏ da"),
		},
		{
			name:      "case insensitive duplicate",
			canonical: strPtr("Bỏ da"),
			alias:     strPtr("bỏ da"),
			want:      strPtr("Bỏ da"),
		},
		{
			name:      "nested duplicates across joined notes",
			canonical: strPtr("bỏ da; thái lát"),
			alias:     strPtr("thái lát; rửa sạch"),
			want:      strPtr("bỏ da; thái lát; rửa sạch"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeNotes(tt.canonical, tt.alias)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestMergeNotesCapsLength(t *testing.T) {
	long := strings.Repeat("x", 180)
	got := mergeNotes(strPtr(long), strPtr(strings.Repeat("y", 180)))
	assert.NotNil(t, got)
	assert.Equal(t, maxNoteLength, len([]rune(*got)))
}

func TestApplyApprovedSkipsUnapprovedAndSelfPairs(t *testing.T) {
	engine := NewEngine(logging.NewNop(), nil, nil, nil, nil, 3)

	suggestions := []models.Suggestion{
		{CanonicalID: 1, AliasID: 2, Approved: false},
		{CanonicalID: 3, AliasID: 3, Approved: true},
	}

	summary := engine.ApplyApproved(context.Background(), suggestions)
	assert.Equal(t, 0, summary.OK)
	assert.Equal(t, 2, summary.Skip)
	assert.Equal(t, 0, summary.Fail)
}
