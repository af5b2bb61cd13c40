package pipeline

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "diacritics stripped", in: "Phở Gà Hà Nội", want: "pho-ga-ha-noi"},
		{name: "punctuation collapses", in: "Canh chua -- cá lóc!", want: "canh-chua-ca-loc"},
		{name: "digits survive", in: "Bánh mì 24h", want: "banh-mi-24h"},
		{name: "empty falls back", in: "***", want: "recipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestStripBadPrefix(t *testing.T) {
	assert.Equal(t, "2kg thịt bò", StripBadPrefix("Mình có 2kg thịt bò"))
	assert.Equal(t, "1 bó rau muống", StripBadPrefix("nhà mình 1 bó rau muống"))
	assert.Equal(t, "200g thịt gà", StripBadPrefix("200g thịt gà"))
	assert.Equal(t, "", StripBadPrefix("mình có"))
}

func TestLooksLikeSentence(t *testing.T) {
	assert.False(t, LooksLikeSentence("200g thịt gà tươi"))
	assert.False(t, LooksLikeSentence(""))
	assert.True(t, LooksLikeSentence("hôm qua mình mua được ít thịt bò về làm gì ngon"))
}

func TestRecipeUUIDStable(t *testing.T) {
	ns := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	a := RecipeUUID(ns, "forum", "vi", 42)
	b := RecipeUUID(ns, "forum", "vi", 42)
	c := RecipeUUID(ns, "forum", "vi", 43)
	d := RecipeUUID(ns, "blog", "vi", 42)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Equal(t, uuid.Version(5), a.Version())
}

func TestShortNote(t *testing.T) {
	assert.Nil(t, shortNote(nil))

	empty := "   "
	assert.Nil(t, shortNote(&empty))

	short := "Món canh ngày hè."
	got := shortNote(&short)
	assert.Equal(t, short, *got)

	long := strings.Repeat("a", 300)
	got = shortNote(&long)
	runes := []rune(*got)
	assert.Len(t, runes, maxShortNoteLength)
	assert.Equal(t, '…', runes[len(runes)-1])
}

func TestMergeNote(t *testing.T) {
	a := "bỏ da"
	b := "bỏ da; thái lát"

	got := mergeNote(&a, &b)
	assert.Equal(t, "bỏ da; thái lát", *got)

	assert.Nil(t, mergeNote(nil, nil))
}
