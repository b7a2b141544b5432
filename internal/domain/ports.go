package domain

import "context"

// SearchParams are the inventory search inputs.
type SearchParams struct {
	RegionID  int64
	Checkin   string // YYYY-MM-DD
	Checkout  string // YYYY-MM-DD
	Residency string
	Guests    []GuestRoom
	Currency  string
	Language  string
	Limit     int
}

// SearchResults is what an availability search returns before any local
// filtering.
type SearchResults struct {
	Hotels      []Hotel
	TotalHotels int
}

// InventoryClient is the third-party inventory API at its boundary. Search is
// phase-fatal on error; content and review fetches are batch-skippable.
type InventoryClient interface {
	SearchByRegion(ctx context.Context, p SearchParams) (SearchResults, error)
	GetContent(ctx context.Context, hids []int64, language string) ([]Content, error)
	GetReviews(ctx context.Context, hids []int64, language string) ([]HotelReviews, error)
	SuggestRegion(ctx context.Context, query, language string) ([]Region, error)
}

// ScoringProvider runs structured completions for one LLM family.
type ScoringProvider interface {
	Name() string
	// Matches reports whether this provider should handle the model name.
	Matches(model string) bool
	// EstimateTokens approximates token count from text length using a
	// family-specific characters-per-token constant. No tokenizer call.
	EstimateTokens(text string) int
	// Complete runs the prompt and unmarshals the model's JSON output into
	// out. It returns *llm.ValidationError for malformed output (retryable)
	// and *llm.TransportError for provider/network failures (fatal).
	Complete(ctx context.Context, model, prompt string, out any) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
