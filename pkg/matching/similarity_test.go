package matching

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("bot ngot", "bot ngot"))
	assert.Equal(t, 0.0, Similarity("", "bot ngot"))
	assert.Equal(t, 0.0, Similarity("bot ngot", ""))

	near := Similarity("nuoc mam", "nuoc mắm")
	assert.Greater(t, near, 0.8)

	far := Similarity("bot ngot", "ca chua")
	assert.Less(t, far, 0.5)
}

func TestSimilaritySymmetricRange(t *testing.T) {
	pairs := [][2]string{
		{"hanh la", "hanh kho"},
		{"thit ga", "thit gao"},
		{"duong", "duong phen"},
	}
	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestLooksBadKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		bad  bool
	}{
		{"empty", "", true},
		{"digit", "nuoc mam 3", true},
		{"too long", strings.Repeat("a", 40), true},
		{"too many tokens", "a b c d e f g h i", true},
		{"eight tokens ok", "a b c d e f g h", false},
		{"normal", "thịt gà", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.bad, LooksBadKey(tt.key))
		})
	}
}

func TestBucketKey(t *testing.T) {
	assert.Equal(t, "empty", bucketKey(""))
	assert.Equal(t, "t:5", bucketKey("thit ga"))
	assert.Equal(t, "t:0", bucketKey("tom"))
	assert.Equal(t, bucketKey("hanh la"), bucketKey("hanh kho"))
}
