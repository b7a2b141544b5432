package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotelscout/internal/adapters/observability"
	"hotelscout/internal/domain"
)

// ScoringConfig carries the batching and retry knobs. Retry/backoff are
// explicit configuration, not module constants, so the scorer stays
// side-effect-free and testable.
type ScoringConfig struct {
	BatchSize     int
	Retries       int
	RetryBackoff  time.Duration
	MaxRates      int
	MaxReviews    int
	MaxAmenities  int
	ReviewTextMax int
}

func (c ScoringConfig) withDefaults() ScoringConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 25
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxRates <= 0 {
		c.MaxRates = 5
	}
	if c.MaxReviews <= 0 {
		c.MaxReviews = 10
	}
	if c.MaxAmenities <= 0 {
		c.MaxAmenities = 20
	}
	if c.ReviewTextMax <= 0 {
		c.ReviewTextMax = 150
	}
	return c
}

// HotelScore is one model verdict. SelectedRateHash is validated against the
// hotel's own offers before it leaves this package.
type HotelScore struct {
	HotelID          string   `json:"hotel_id"`
	Score            int      `json:"score"`
	TopReasons       []string `json:"top_reasons"`
	ScorePenalties   []string `json:"score_penalties"`
	SelectedRateHash *string  `json:"selected_rate_hash"`
}

type scoringResponse struct {
	Results []HotelScore `json:"results"`
}

// ScoringError reports which batch killed the scoring phase and why.
type ScoringError struct {
	Batch int
	Kind  string // KindScoringValidation or KindScoringTransport
	Err   error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring batch %d: %v", e.Batch, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// PriceConstraints are the caller's per-night bounds, echoed into the prompt.
type PriceConstraints struct {
	Min *float64
	Max *float64
}

// Scorer partitions candidates into token-budgeted batches, runs the scoring
// provider per batch, and merges the verdicts. Batches run strictly
// sequentially; the provider APIs are assumed rate-limited and sequential
// calls are the backpressure strategy.
type Scorer struct {
	provider domain.ScoringProvider
	model    string
	cfg      ScoringConfig
	nights   int
}

func NewScorer(provider domain.ScoringProvider, model string, nights int, cfg ScoringConfig) *Scorer {
	if nights < 1 {
		nights = 1
	}
	return &Scorer{provider: provider, model: model, cfg: cfg.withDefaults(), nights: nights}
}

// Score runs the full scoring phase. emit receives progress events in order;
// it returns false when the consumer is gone, which stops the phase before
// the next provider call. The returned scores are deduplicated by hotel id,
// validated, and sorted by score descending (stable on ties).
//
// A validation failure is retried cfg.Retries times with a fixed backoff and
// then escalates to a fatal *ScoringError; a transport failure aborts
// immediately. Hotels the provider silently drops are absent from the
// output, never defaulted to score 0.
func (s *Scorer) Score(ctx context.Context, candidates []domain.CombinedHotel, preferences string, guests []domain.GuestRoom, prices PriceConstraints, emit func(Event) bool) ([]HotelScore, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	compact := make([]llmHotel, len(candidates))
	for i, c := range candidates {
		compact[i] = s.compactHotel(c)
	}

	total := len(compact)
	totalBatches := (total + s.cfg.BatchSize - 1) / s.cfg.BatchSize

	var allPrompts strings.Builder
	for i := 0; i < total; i += s.cfg.BatchSize {
		allPrompts.WriteString(s.buildPrompt(compact[i:min(i+s.cfg.BatchSize, total)], preferences, guests, prices))
	}

	if !emit(Event{Type: EventScoringStart, Data: ScoringStartData{
		TotalHotels:     total,
		TotalBatches:    totalBatches,
		BatchSize:       s.cfg.BatchSize,
		EstimatedTokens: s.provider.EstimateTokens(allPrompts.String()),
	}}) {
		return nil, ctx.Err()
	}

	byID := make(map[string]domain.Hotel, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c.Hotel
	}

	var merged []HotelScore
	processed := 0
	for batchNum := 1; batchNum <= totalBatches; batchNum++ {
		lo := (batchNum - 1) * s.cfg.BatchSize
		hi := min(lo+s.cfg.BatchSize, total)
		prompt := s.buildPrompt(compact[lo:hi], preferences, guests, prices)

		if !emit(Event{Type: EventScoringBatchStart, Data: ScoringBatchStartData{
			Batch:           batchNum,
			TotalBatches:    totalBatches,
			HotelsInBatch:   hi - lo,
			EstimatedTokens: s.provider.EstimateTokens(prompt),
		}}) {
			return nil, ctx.Err()
		}

		resp, err := s.runBatch(ctx, batchNum, prompt, emit)
		if err != nil {
			return nil, err
		}
		merged = append(merged, resp.Results...)

		processed += hi - lo
		if !emit(Event{Type: EventScoringProgress, Data: ScoringProgressData{
			Processed:    processed,
			Total:        total,
			Batch:        batchNum,
			TotalBatches: totalBatches,
		}}) {
			return nil, ctx.Err()
		}
	}

	return finalizeScores(merged, byID), nil
}

// runBatch executes one provider call with the validation retry loop.
func (s *Scorer) runBatch(ctx context.Context, batchNum int, prompt string, emit func(Event) bool) (scoringResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return scoringResponse{}, err
		}

		var resp scoringResponse
		err := s.provider.Complete(ctx, s.model, prompt, &resp)
		if err == nil {
			if attempt == 1 {
				observability.ObserveScoringBatch(s.provider.Name(), "ok")
			} else {
				observability.ObserveScoringBatch(s.provider.Name(), "retried")
			}
			return resp, nil
		}
		if !isRetryable(err) {
			observability.ObserveScoringBatch(s.provider.Name(), "failed")
			return scoringResponse{}, &ScoringError{Batch: batchNum, Kind: KindScoringTransport, Err: err}
		}

		lastErr = err
		if attempt < s.cfg.Retries {
			observability.ObserveScoringRetry(s.provider.Name())
			if !emit(Event{Type: EventScoringRetry, Data: ScoringRetryData{
				Batch:       batchNum,
				Attempt:     attempt,
				MaxAttempts: s.cfg.Retries,
				Error:       truncate(err.Error(), 100),
			}}) {
				return scoringResponse{}, ctx.Err()
			}
			if !sleepScoring(ctx, s.cfg.RetryBackoff) {
				return scoringResponse{}, ctx.Err()
			}
		}
	}
	observability.ObserveScoringBatch(s.provider.Name(), "failed")
	return scoringResponse{}, &ScoringError{Batch: batchNum, Kind: KindScoringValidation, Err: lastErr}
}

// isRetryable distinguishes malformed-output failures (retry) from
// provider/transport failures (abort). Providers signal the class through a
// Retryable marker on their error types; anything unknown is treated as fatal.
func isRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}

// finalizeScores dedupes by hotel id (first occurrence wins), drops verdicts
// for unknown hotels, nils out rate hashes a hotel does not own, and sorts by
// score descending.
func finalizeScores(scores []HotelScore, byID map[string]domain.Hotel) []HotelScore {
	out := make([]HotelScore, 0, len(scores))
	seen := make(map[string]struct{}, len(scores))
	for _, sc := range scores {
		hotel, ok := byID[sc.HotelID]
		if !ok {
			log.Warn().Str("hotel_id", sc.HotelID).Msg("provider returned unknown hotel id, dropping")
			continue
		}
		if _, dup := seen[sc.HotelID]; dup {
			continue
		}
		seen[sc.HotelID] = struct{}{}

		if sc.SelectedRateHash != nil && !hotel.OwnsRateHash(*sc.SelectedRateHash) {
			// Never substitute a different offer for an invalid reference.
			sc.SelectedRateHash = nil
		}
		out = append(out, sc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func sleepScoring(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ---- compact LLM-facing records ----

type llmRate struct {
	MatchHash        string  `json:"match_hash"`
	Room             string  `json:"room"`
	Price            *string `json:"price,omitempty"`
	Meal             string  `json:"meal,omitempty"`
	HasBreakfast     bool    `json:"has_breakfast"`
	FreeCancelBefore *string `json:"free_cancel_before,omitempty"`
	Capacity         int     `json:"capacity,omitempty"`
}

type llmReview struct {
	Rating float64 `json:"rating"`
	Plus   string  `json:"plus,omitempty"`
	Minus  string  `json:"minus,omitempty"`
}

type llmHotel struct {
	HotelID     string             `json:"hotel_id"`
	Name        string             `json:"name,omitempty"`
	Stars       int                `json:"stars"`
	Kind        string             `json:"kind,omitempty"`
	Address     string             `json:"address,omitempty"`
	Description []string           `json:"description,omitempty"`
	SerpFilters []string           `json:"serp_filters,omitempty"`
	Rates       []llmRate          `json:"rates"`
	Amenities   []string           `json:"amenities,omitempty"`
	AvgRating   *float64           `json:"avg_rating,omitempty"`
	Reviews     []llmReview        `json:"reviews,omitempty"`
	Facts       *domain.HotelFacts `json:"facts,omitempty"`
}

// compactHotel reduces a candidate to the bounded record sent to the model.
// Raw payloads are never sent in full.
func (s *Scorer) compactHotel(c domain.CombinedHotel) llmHotel {
	h := llmHotel{
		HotelID:   c.ID,
		Stars:     c.StarRating(),
		Kind:      c.Kind(),
		AvgRating: c.Reviews.AvgRating,
		Rates:     s.representativeRates(c.Hotel),
	}
	if c.Content != nil {
		h.Name = c.Content.Name
		h.Address = c.Content.Address
		h.SerpFilters = c.Content.SerpFilters
		h.Facts = c.Content.Facts
		for _, p := range c.Content.Description {
			h.Description = append(h.Description, p.Paragraphs...)
			if len(h.Description) >= 3 {
				h.Description = h.Description[:3]
				break
			}
		}
		for _, g := range c.Content.AmenityGroups {
			h.Amenities = append(h.Amenities, g.Amenities...)
		}
		if len(h.Amenities) > s.cfg.MaxAmenities {
			h.Amenities = h.Amenities[:s.cfg.MaxAmenities]
		}
	}
	for i, r := range c.Reviews.Sample {
		if i >= s.cfg.MaxReviews {
			break
		}
		rv := llmReview{Rating: r.Rating}
		if r.ReviewPlus != nil {
			rv.Plus = truncate(*r.ReviewPlus, s.cfg.ReviewTextMax)
		}
		if r.ReviewMinus != nil {
			rv.Minus = truncate(*r.ReviewMinus, s.cfg.ReviewTextMax)
		}
		h.Reviews = append(h.Reviews, rv)
	}
	return h
}

// representativeRates selects a bounded offer sample covering the cheapest,
// has-breakfast, free-cancellation, and highest-capacity variants,
// deduplicated by match hash, then fills any remaining slots in offer order.
func (s *Scorer) representativeRates(h domain.Hotel) []llmRate {
	if len(h.Rates) == 0 {
		return nil
	}

	var cheapest, breakfast, freeCancel, roomiest *domain.RateOffer
	minTotal, maxCap := 0.0, -1
	for i := range h.Rates {
		r := &h.Rates[i]
		if total := offerTotalPrice(*r); total != nil && (cheapest == nil || *total < minTotal) {
			minTotal = *total
			cheapest = r
		}
		if breakfast == nil && r.MealData != nil && r.MealData.HasBreakfast {
			breakfast = r
		}
		if freeCancel == nil && freeCancelBefore(*r) != nil {
			freeCancel = r
		}
		if r.RoomExt != nil && r.RoomExt.Capacity > maxCap {
			maxCap = r.RoomExt.Capacity
			roomiest = r
		}
	}

	picked := make([]domain.RateOffer, 0, s.cfg.MaxRates)
	seen := make(map[string]struct{}, s.cfg.MaxRates)
	add := func(r *domain.RateOffer) {
		if r == nil || len(picked) >= s.cfg.MaxRates {
			return
		}
		if _, ok := seen[r.MatchHash]; ok {
			return
		}
		seen[r.MatchHash] = struct{}{}
		picked = append(picked, *r)
	}
	add(cheapest)
	add(breakfast)
	add(freeCancel)
	add(roomiest)
	for i := range h.Rates {
		add(&h.Rates[i])
	}

	out := make([]llmRate, len(picked))
	for i, r := range picked {
		out[i] = s.compactRate(r)
	}
	return out
}

func (s *Scorer) compactRate(r domain.RateOffer) llmRate {
	lr := llmRate{
		MatchHash:        r.MatchHash,
		Room:             truncate(r.RoomName, 60),
		Meal:             r.Meal,
		FreeCancelBefore: freeCancelBefore(r),
	}
	if r.MealData != nil {
		lr.Meal = r.MealData.Value
		lr.HasBreakfast = r.MealData.HasBreakfast
	}
	if pts := r.PaymentOptions.PaymentTypes; len(pts) > 0 {
		if p, ok := parsePrice(pts[0].ShowAmount); ok {
			str := fmt.Sprintf("%.2f %s", p, pts[0].ShowCurrencyCode)
			lr.Price = &str
		}
	}
	if r.RoomExt != nil {
		lr.Capacity = r.RoomExt.Capacity
	}
	return lr
}

// freeCancelBefore returns the free-cancellation deadline date (YYYY-MM-DD)
// from the first payment type that has one.
func freeCancelBefore(r domain.RateOffer) *string {
	for _, pt := range r.PaymentOptions.PaymentTypes {
		if pt.CancellationPenalties == nil || pt.CancellationPenalties.FreeCancellationBefore == nil {
			continue
		}
		d := truncate(*pt.CancellationPenalties.FreeCancellationBefore, 10)
		return &d
	}
	return nil
}

// ---- prompt ----

const scoringPromptHeader = `You are a hotel recommendation expert. Score hotels based on user preferences.

## Trip
%s

## User Preferences
%s

## Hotels to Score
%s

## Scoring Guidelines

**Score Range (0-100):**
- 90-100: Excellent match - meets all key preferences, no significant drawbacks
- 70-89: Good match - meets most preferences, minor compromises
- 50-69: Acceptable - meets some preferences, notable gaps
- 30-49: Poor match - significant misalignment with preferences
- 0-29: Very poor - fails to meet most preferences

**Critical Rule - Explicit Preference Violations:**
If the user explicitly stated a preference and a hotel does NOT meet it,
apply a heavy penalty (-15 to -30 points per violation). Missing features the
user did not mention are a minor penalty (-5 to -10).

**Instructions:**
1. Identify explicit user requirements from the preferences
2. Check each hotel against them - violations are critical
3. Assign a score reflecting overall fit
4. top_reasons: 1-5 concise phrases (max 10 words) why the hotel fits
5. score_penalties: facts explaining deductions, explicit violations first
6. selected_rate_hash: the match_hash of the best-fitting rate for this user,
   or null if none stands out. Only use hashes listed for that same hotel.
7. Return ALL hotels as JSON: {"results":[{"hotel_id":...,"score":...,"top_reasons":[...],"score_penalties":[...],"selected_rate_hash":...}]}, sorted by score descending
`

func (s *Scorer) buildPrompt(hotels []llmHotel, preferences string, guests []domain.GuestRoom, prices PriceConstraints) string {
	hotelsJSON, err := json.Marshal(hotels)
	if err != nil {
		hotelsJSON = []byte("[]")
	}

	var trip strings.Builder
	adults, children := 0, 0
	for _, g := range guests {
		adults += g.Adults
		children += len(g.Children)
	}
	fmt.Fprintf(&trip, "%d adults, %d children, %d nights", adults, children, s.nights)
	if prices.Min != nil {
		fmt.Fprintf(&trip, ", min %.0f per night", *prices.Min)
	}
	if prices.Max != nil {
		fmt.Fprintf(&trip, ", max %.0f per night", *prices.Max)
	}

	return fmt.Sprintf(scoringPromptHeader, trip.String(), preferences, hotelsJSON)
}
