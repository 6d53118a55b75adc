package domain

import "time"

// TaskType identifies a class of AI extraction work. Cache entries for
// identical bytes under different tasks never collide.
type TaskType string

const (
	TaskReceipt       TaskType = "receipt"
	TaskLabel         TaskType = "label"
	TaskPriceTag      TaskType = "price_tag"
	TaskNormalization TaskType = "normalization"
)

// RawLineItem is a single purchased line as it appears on a receipt
type RawLineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Receipt is the structured result of scanning one receipt photo
type Receipt struct {
	Items []RawLineItem `json:"items"`
	Total float64       `json:"total"`
}

// LabelFacts holds the nutrition panel of a product label.
// All macro values are per 100 grams of product.
type LabelFacts struct {
	Name        string   `json:"name"`
	Brand       *string  `json:"brand,omitempty"`
	WeightGrams *float64 `json:"weight_grams,omitempty"`
	Calories    float64  `json:"calories"`
	Protein     float64  `json:"protein"` // grams
	Fat         float64  `json:"fat"`     // grams
	Carbs       float64  `json:"carbs"`   // grams
	Fiber       float64  `json:"fiber"`   // grams
}

// PriceTagFacts holds the fields read off a shelf price tag
type PriceTagFacts struct {
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Volume      *string `json:"volume,omitempty"`
	Store       *string `json:"store,omitempty"`
}

// NormalizedItem is a raw receipt line resolved to a canonical product.
// OriginalName always preserves the exact receipt wording so results can be
// traced back one-to-one. Macro values are per 100 grams.
type NormalizedItem struct {
	CanonicalName string  `json:"canonical_name"`
	OriginalName  string  `json:"original_name"`
	Category      *string `json:"category,omitempty"`
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbs         float64 `json:"carbs"`
	Fiber         float64 `json:"fiber"`
}

// MatchResult is the outcome of matching one label against a candidate set.
// Matched is nil when no candidate reached the acceptance threshold.
type MatchResult struct {
	Matched *NormalizedItem `json:"matched,omitempty"`
	Score   float64         `json:"score"`
}

// Suggestion is a near-miss candidate offered for manual resolution
type Suggestion struct {
	Item  NormalizedItem `json:"item"`
	Score float64        `json:"score"`
}

// ReconcileReport pairs a batch of scanned labels with receipt items
type ReconcileReport struct {
	Matched   []ReconciledPair `json:"matched"`
	Unmatched []UnmatchedLabel `json:"unmatched"`
}

// ReconciledPair binds one label to the receipt item it was resolved to
type ReconciledPair struct {
	Label LabelFacts     `json:"label"`
	Item  NormalizedItem `json:"item"`
	Score float64        `json:"score"`
}

// UnmatchedLabel carries a label that found no acceptable item, with up to
// three suggestions scoring above the suggestion floor
type UnmatchedLabel struct {
	Label       LabelFacts   `json:"label"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// CacheEntry is one memoized pipeline result keyed by content fingerprint
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint" bson:"fingerprint"`
	Task        TaskType  `json:"task" bson:"task"`
	Result      []byte    `json:"result" bson:"result"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Outcome labels a model invocation result for observability
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeTimeout         Outcome = "timeout"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeInvalidResponse Outcome = "invalid_response"
	OutcomeTransportError  Outcome = "transport_error"
)
