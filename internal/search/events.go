package search

import "hotelscout/internal/domain"

// EventType names one progress or terminal event on the pipeline stream.
type EventType string

const (
	EventSearchStart EventType = "search_start"
	EventSearchDone  EventType = "search_done"

	EventContentStart EventType = "content_start"
	EventContentDone  EventType = "content_done"

	EventReviewsStart EventType = "reviews_start"
	EventReviewsDone  EventType = "reviews_done"

	EventPresortDone EventType = "presort_done"

	EventScoringStart      EventType = "scoring_start"
	EventScoringBatchStart EventType = "scoring_batch_start"
	EventScoringRetry      EventType = "scoring_retry"
	EventScoringProgress   EventType = "scoring_progress"

	EventSummaryStart EventType = "summary_start"
	EventSummaryDone  EventType = "summary_done"

	EventError EventType = "error"
	EventDone  EventType = "done"
)

// Event is one entry on the ordered stream a pipeline run produces. Exactly
// one terminal event (error or done) ends every stream.
type Event struct {
	Type     EventType `json:"type"`
	SearchID string    `json:"search_id"`
	Data     any       `json:"data,omitempty"`
}

type SearchStartData struct {
	RegionID    int64              `json:"region_id"`
	Checkin     string             `json:"checkin"`
	Checkout    string             `json:"checkout"`
	Guests      []domain.GuestRoom `json:"guests"`
	Residency   string             `json:"residency"`
	Currency    string             `json:"currency,omitempty"`
	Language    string             `json:"language,omitempty"`
	MinPrice    *float64           `json:"min_price_per_night,omitempty"`
	MaxPrice    *float64           `json:"max_price_per_night,omitempty"`
	Preferences string             `json:"user_preferences,omitempty"`
}

type SearchDoneData struct {
	TotalAvailable   int  `json:"total_available"`
	TotalAfterFilter int  `json:"total_after_filter"`
	Sampled          *int `json:"sampled,omitempty"`
}

type BatchFetchStartData struct {
	TotalHotels  int `json:"total_hotels"`
	TotalBatches int `json:"total_batches"`
}

type ContentDoneData struct {
	HotelsWithContent int `json:"hotels_with_content"`
	TotalHotels       int `json:"total_hotels"`
}

type ReviewsDoneData struct {
	HotelsWithReviews int `json:"hotels_with_reviews"`
	TotalHotels       int `json:"total_hotels"`
}

type PresortDoneData struct {
	InputHotels  int `json:"input_hotels"`
	OutputHotels int `json:"output_hotels"`
}

type ScoringStartData struct {
	TotalHotels     int `json:"total_hotels"`
	TotalBatches    int `json:"total_batches"`
	BatchSize       int `json:"batch_size"`
	EstimatedTokens int `json:"estimated_tokens"`
}

type ScoringBatchStartData struct {
	Batch           int `json:"batch"`
	TotalBatches    int `json:"total_batches"`
	HotelsInBatch   int `json:"hotels_in_batch"`
	EstimatedTokens int `json:"estimated_tokens"`
}

type ScoringRetryData struct {
	Batch       int    `json:"batch"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Error       string `json:"error"`
}

type ScoringProgressData struct {
	Processed    int `json:"processed"`
	Total        int `json:"total"`
	Batch        int `json:"batch"`
	TotalBatches int `json:"total_batches"`
}

type SummaryStartData struct {
	TopHotels int `json:"top_hotels"`
}

type SummaryDoneData struct {
	Summary Summary `json:"summary"`
}

type ErrorData struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Batch   *int   `json:"batch,omitempty"`
}

type DoneData struct {
	TotalScored int                  `json:"total_scored"`
	Hotels      []domain.ScoredHotel `json:"hotels"`
}

// Error kinds carried by the terminal error event.
const (
	KindUpstreamFetch     = "upstream_fetch_error"
	KindScoringValidation = "scoring_validation_failure"
	KindScoringTransport  = "scoring_transport_failure"
)
