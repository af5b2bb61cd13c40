package ingparse

// Vocabulary carries the fixed heuristic tables the parser matches against.
// Tables are data, not logic, so they can be tested and revised on their own.
type Vocabulary struct {
	// Units maps a unit token to its folded canonical form.
	Units map[string]string
	// HedgePhrases are token sequences that signal an optional, unmeasured
	// mention ("to taste", "a little"). Order matters: at a given position
	// the first matching sequence wins.
	HedgePhrases [][]string
	// TrailingModifiers are token sequences stripped from the end of a name
	// into the note (preparation or adjectival qualifiers).
	TrailingModifiers [][]string
}

// DefaultVocabulary returns the Vietnamese recipe vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Units: map[string]string{
			"g": "g", "gram": "g", "gam": "g",
			"kg": "kg",
			"ml": "ml",
			"l": "l", "lit": "l", "lít": "l",
			"tbsp": "tbsp", "tsp": "tsp",
			"thìa": "thìa", "muỗng": "muỗng",
			"củ": "củ", "quả": "quả", "lá": "lá", "nhánh": "nhánh", "tép": "tép",
			"miếng": "miếng", "khoanh": "khoanh",
			"gói": "gói", "hộp": "hộp", "chai": "chai", "lon": "lon",
			"bát": "bát", "chén": "chén",
		},
		HedgePhrases: [][]string{
			{"vừa", "đủ"},
			{"tùy", "thích"},
			{"tuỳ", "thích"},
			{"tùy"},
			{"tuỳ"},
			{"ít"},
			{"một", "ít"},
			{"nếu", "thích"},
			{"không", "bắt", "buộc"},
			{"có", "thể"},
		},
		TrailingModifiers: [][]string{
			{"nhỏ"}, {"to"}, {"vừa"}, {"lớn"}, {"tươi"}, {"khô"},
			{"băm", "nhỏ"}, {"băm"},
			{"thái", "nhỏ"}, {"thái"},
			{"xắt"},
			{"cắt", "lát"}, {"cắt", "nhỏ"}, {"cắt"},
			{"xay"}, {"giã"},
			{"đập", "dập"},
			{"rửa", "sạch"},
			{"gọt", "vỏ"}, {"bỏ", "vỏ"}, {"bỏ", "hạt"},
		},
	}
}
