package matching

// ClassifierVocabulary carries the fixed tables the decision rules consult.
// All entries are in normalized (diacritic-stripped) form.
type ClassifierVocabulary struct {
	// PackagingWords are tokens that only describe packaging or portioning.
	// An alias that is the canonical plus packaging tokens can be folded.
	PackagingWords map[string]bool
	// DangerousNearPairs are token pairs that look alike but name different
	// things. Directional: both orders are listed.
	DangerousNearPairs [][2]string
	// ProteinTokens name protein categories. Two keys naming different
	// protein sets must never merge regardless of score.
	ProteinTokens map[string]bool
}

func DefaultClassifierVocabulary() ClassifierVocabulary {
	return ClassifierVocabulary{
		PackagingWords: map[string]bool{
			"hop": true, "goi": true, "chai": true, "lon": true, "hu": true,
			"bi": true, "tui": true, "loai": true, "th": true, "lo": true,
			"thung": true, "vien": true, "que": true, "mieng": true,
		},
		DangerousNearPairs: [][2]string{
			{"canh", "chanh"}, {"chanh", "canh"},
			{"suon", "sun"}, {"sun", "suon"},
			{"ga", "gao"}, {"gao", "ga"},
			{"ca", "cua"}, {"cua", "ca"},
			{"chan", "cha"}, {"cha", "chan"},
		},
		ProteinTokens: map[string]bool{
			"ga": true, "heo": true, "bo": true, "tom": true, "ca": true,
			"cua": true, "de": true, "vit": true, "lon": true,
		},
	}
}
