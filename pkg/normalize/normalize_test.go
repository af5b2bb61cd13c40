package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and trims",
			input:    "  Bot Ngot  ",
			expected: "bot ngot",
		},
		{
			name:     "strips diacritics",
			input:    "thịt gà",
			expected: "thit ga",
		},
		{
			name:     "collapses punctuation runs",
			input:    "hành,   lá!!",
			expected: "hanh la",
		},
		{
			name:     "keeps digits",
			input:    "nuoc mam 3 trang",
			expected: "nuoc mam 3 trang",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only punctuation",
			input:    "--- !!!",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.input))
		})
	}
}

func TestKeyDiacriticInsensitive(t *testing.T) {
	assert.Equal(t, Key("Pho"), Key("Phở"))
	assert.Equal(t, Key("ca chua"), Key("cà chua"))
}

func TestKeyIdempotent(t *testing.T) {
	inputs := []string{"Phở Bò", "thịt gà tươi", "  Muối; tiêu  ", "bột ngọt"}
	for _, in := range inputs {
		once := Key(in)
		assert.Equal(t, once, Key(once))
	}
}

func TestContainsDigit(t *testing.T) {
	assert.True(t, ContainsDigit("200g ga"))
	assert.False(t, ContainsDigit("thit ga"))
}
