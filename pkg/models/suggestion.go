package models

// Decision values for a merge suggestion.
const (
	DecisionAutoApprove  = "auto_approve"
	DecisionAutoReject   = "auto_reject"
	DecisionManualReview = "manual_review"
)

// Suggestion is a scored candidate merge of the alias ingredient into the
// canonical ingredient. It lives in the review file, never in the database.
type Suggestion struct {
	CanonicalID   int64   `json:"canonical_id"`
	CanonicalKey  string  `json:"canonical_key"`
	AliasID       int64   `json:"alias_id"`
	AliasKey      string  `json:"alias_key"`
	Score         float64 `json:"score"`
	UsedCanonical int64   `json:"used_count_canonical"`
	UsedAlias     int64   `json:"used_count_alias"`
	Reason        string  `json:"reason"`
	Decision      string  `json:"decision"`
	Approved      bool    `json:"approved"`
}

// CollisionDirective is one reviewed row of the collision worksheet: fold
// every ingredient sharing AliasNorm into the named canonical ingredient.
// Only rows with Decision "auto" are applied.
type CollisionDirective struct {
	AliasNorm    string `json:"alias_norm"`
	CanonicalID  int64  `json:"canonical_id"`
	CanonicalKey string `json:"canonical_key"`
	Decision     string `json:"decision"`
	Notes        string `json:"notes"`
}

// BatchSummary reports per-item outcomes of a batch job.
type BatchSummary struct {
	OK   int `json:"ok"`
	Skip int `json:"skip"`
	Fail int `json:"fail"`
}
