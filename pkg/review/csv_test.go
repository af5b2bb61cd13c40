package review

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencookbook/mortar/pkg/models"
)

func sampleSuggestions() []models.Suggestion {
	return []models.Suggestion{
		{
			CanonicalID:   10,
			CanonicalKey:  "thịt gà",
			AliasID:       22,
			AliasKey:      "thit ga",
			Score:         0.9876,
			UsedCanonical: 14,
			UsedAlias:     3,
			Reason:        "norm_sim=0.988 bucket=t:5",
			Decision:      models.DecisionAutoApprove,
		},
		{
			CanonicalID:   11,
			CanonicalKey:  "nấm rơm",
			AliasID:       23,
			AliasKey:      "nấm hương",
			Score:         0.9300,
			UsedCanonical: 8,
			UsedAlias:     2,
			Reason:        "norm_sim=0.930 bucket=n:5",
			Decision:      models.DecisionManualReview,
		},
	}
}

func TestWriteSuggestions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSuggestions(&buf, sampleSuggestions(), 0))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(suggestionHeader, ","), lines[0])
	assert.Contains(t, lines[1], "0.9876")
	assert.True(t, strings.HasSuffix(lines[1], ",Y"))
	assert.True(t, strings.HasSuffix(lines[2], ","))
}

func TestWriteSuggestionsLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSuggestions(&buf, sampleSuggestions(), 1))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestReadApprovedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSuggestions(&buf, sampleSuggestions(), 0))

	approved, err := ReadApproved(&buf)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, int64(10), approved[0].CanonicalID)
	assert.Equal(t, int64(22), approved[0].AliasID)
	assert.Equal(t, "thit ga", approved[0].AliasKey)
	assert.True(t, approved[0].Approved)
}

func TestReadApprovedMarkers(t *testing.T) {
	csv := "canonical_id,canonical_key,alias_id,alias_key,score,used_count_canonical,used_count_alias,reason,decision,approved\n" +
		"1,a,2,b,0.95,5,1,r,manual_review,yes\n" +
		"3,c,4,d,0.95,5,1,r,manual_review,TRUE\n" +
		"5,e,6,f,0.95,5,1,r,manual_review,n\n" +
		"7,g,8,h,0.95,5,1,r,manual_review,\n"

	approved, err := ReadApproved(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, int64(1), approved[0].CanonicalID)
	assert.Equal(t, int64(3), approved[1].CanonicalID)
}

func TestReadCollisionDirectives(t *testing.T) {
	csv := "\uFEFFalias_norm,canonical_id,canonical_key,decision,notes\n" +
		"thit ga,10,thịt gà,auto,usage winner\n" +
		"nuoc mam,12,nước mắm,manual,check brands\n"

	directives, err := ReadCollisionDirectives(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, directives, 2)

	assert.Equal(t, "thit ga", directives[0].AliasNorm)
	assert.Equal(t, int64(10), directives[0].CanonicalID)
	assert.Equal(t, "auto", directives[0].Decision)
	assert.Equal(t, "manual", directives[1].Decision)
	assert.Equal(t, "check brands", directives[1].Notes)
}

func TestReadCollisionDirectivesEmpty(t *testing.T) {
	directives, err := ReadCollisionDirectives(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, directives)
}
