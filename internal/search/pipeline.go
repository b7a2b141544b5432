package search

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotelscout/internal/adapters/observability"
	"hotelscout/internal/domain"
)

// DefaultPreferences is used when the request carries no preference prompt.
const DefaultPreferences = "Best value for money, good reviews, convenient location"

// Request is one search run.
type Request struct {
	RegionID    int64              `json:"region_id"`
	Checkin     string             `json:"checkin"`  // YYYY-MM-DD
	Checkout    string             `json:"checkout"` // YYYY-MM-DD
	Residency   string             `json:"residency"`
	Guests      []domain.GuestRoom `json:"guests"`
	Currency    string             `json:"currency,omitempty"`
	Language    string             `json:"language,omitempty"`
	MinPrice    *float64           `json:"min_price_per_night,omitempty"`
	MaxPrice    *float64           `json:"max_price_per_night,omitempty"`
	Preferences string             `json:"user_preferences,omitempty"`
}

// Config holds the pipeline tuning knobs. Zero values fall back to the same
// defaults the environment config uses.
type Config struct {
	AnalysisCap  int
	FloorPrice   float64
	PresortLimit int
	ContentBatch int
	ReviewsBatch int
	ReviewMaxAge int // years
	ReviewSample int
	SummaryTopN  int
	ScoringModel string
	Scoring      ScoringConfig
}

func (c Config) withDefaults() Config {
	if c.AnalysisCap <= 0 {
		c.AnalysisCap = 500
	}
	if c.FloorPrice <= 0 {
		c.FloorPrice = 10
	}
	if c.PresortLimit <= 0 {
		c.PresortLimit = 100
	}
	if c.ContentBatch <= 0 {
		c.ContentBatch = 100
	}
	if c.ReviewsBatch <= 0 {
		c.ReviewsBatch = 100
	}
	if c.ReviewMaxAge <= 0 {
		c.ReviewMaxAge = 5
	}
	if c.ReviewSample <= 0 {
		c.ReviewSample = 50
	}
	if c.SummaryTopN <= 0 {
		c.SummaryTopN = 10
	}
	return c
}

// ProviderResolver picks the scoring provider for a model name.
type ProviderResolver interface {
	Resolve(model string) domain.ScoringProvider
}

// Pipeline runs the search-aggregate-score flow and streams progress events.
type Pipeline struct {
	inv      domain.InventoryClient
	resolver ProviderResolver
	cfg      Config
	log      zerolog.Logger
}

func NewPipeline(inv domain.InventoryClient, resolver ProviderResolver, cfg Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{inv: inv, resolver: resolver, cfg: cfg.withDefaults(), log: log}
}

// Run starts one search and returns its event stream. The channel is
// unbuffered so the producer never outruns the consumer, and it is closed
// after the single terminal event (done or error). Cancelling ctx stops the
// run at the next phase or batch boundary.
func (p *Pipeline) Run(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		p.run(ctx, req, out)
	}()
	return out
}

func (p *Pipeline) run(ctx context.Context, req Request, out chan<- Event) {
	searchID := uuid.NewString()
	log := p.log.With().Str("search_id", searchID).Logger()

	outcome := "abandoned"
	defer func() { observability.ObserveSearch(outcome) }()

	// emit reports false once the consumer is gone; every phase checks it
	// before doing more upstream work.
	emit := func(e Event) bool {
		e.SearchID = searchID
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(kind, msg string, batch *int) {
		if emit(Event{Type: EventError, Data: ErrorData{Kind: kind, Message: msg, Batch: batch}}) {
			outcome = "error"
		}
	}

	if req.Preferences == "" {
		req.Preferences = DefaultPreferences
	}
	nights := nightsBetween(req.Checkin, req.Checkout)

	if !emit(Event{Type: EventSearchStart, Data: SearchStartData{
		RegionID:    req.RegionID,
		Checkin:     req.Checkin,
		Checkout:    req.Checkout,
		Guests:      req.Guests,
		Residency:   req.Residency,
		Currency:    req.Currency,
		Language:    req.Language,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
		Preferences: req.Preferences,
	}}) {
		return
	}

	results, err := p.inv.SearchByRegion(ctx, domain.SearchParams{
		RegionID:  req.RegionID,
		Checkin:   req.Checkin,
		Checkout:  req.Checkout,
		Residency: req.Residency,
		Guests:    req.Guests,
		Currency:  req.Currency,
		Language:  req.Language,
	})
	if err != nil {
		log.Error().Err(err).Msg("availability search failed")
		fail(KindUpstreamFetch, "availability search failed: "+err.Error(), nil)
		return
	}

	hotels := FilterByPrice(results.Hotels, req.MinPrice, req.MaxPrice, nights)
	hotels = FilterUnrealistic(hotels, p.cfg.FloorPrice, nights)
	afterFilter := len(hotels)

	var sampled *int
	if len(hotels) > p.cfg.AnalysisCap {
		rand.Shuffle(len(hotels), func(i, j int) { hotels[i], hotels[j] = hotels[j], hotels[i] })
		hotels = hotels[:p.cfg.AnalysisCap]
		n := len(hotels)
		sampled = &n
	}

	if !emit(Event{Type: EventSearchDone, Data: SearchDoneData{
		TotalAvailable:   results.TotalHotels,
		TotalAfterFilter: afterFilter,
		Sampled:          sampled,
	}}) {
		return
	}
	if len(hotels) == 0 {
		if emit(Event{Type: EventDone, Data: DoneData{TotalScored: 0, Hotels: []domain.ScoredHotel{}}}) {
			outcome = "done"
		}
		return
	}

	hids := make([]int64, len(hotels))
	for i, h := range hotels {
		hids[i] = h.HID
	}

	content, ok := p.fetchContent(ctx, hids, req.Language, emit, log)
	if !ok {
		return
	}
	reviews, ok := p.fetchReviews(ctx, hids, req.Language, emit, log)
	if !ok {
		return
	}
	aggregated := AggregateReviews(reviews, p.cfg.ReviewMaxAge, p.cfg.ReviewSample, time.Now())

	combined := make([]domain.CombinedHotel, len(hotels))
	for i, h := range hotels {
		combined[i] = domain.CombinedHotel{
			Hotel:   h,
			Content: content[h.HID],
			Reviews: aggregated[h.HID],
		}
	}

	presorted := Presort(combined, p.cfg.PresortLimit)
	if !emit(Event{Type: EventPresortDone, Data: PresortDoneData{
		InputHotels:  len(combined),
		OutputHotels: len(presorted),
	}}) {
		return
	}

	provider := p.resolver.Resolve(p.cfg.ScoringModel)
	scorer := NewScorer(provider, p.cfg.ScoringModel, nights, p.cfg.Scoring)
	scores, err := scorer.Score(ctx, presorted, req.Preferences, req.Guests,
		PriceConstraints{Min: req.MinPrice, Max: req.MaxPrice}, emit)
	if err != nil {
		var se *ScoringError
		if errors.As(err, &se) {
			log.Error().Err(se.Err).Int("batch", se.Batch).Str("kind", se.Kind).Msg("scoring failed")
			fail(se.Kind, se.Err.Error(), &se.Batch)
		}
		return
	}

	final := p.finalize(presorted, scores, req)
	p.summarize(ctx, provider, final, req.Preferences, nights, emit, log)

	if emit(Event{Type: EventDone, Data: DoneData{TotalScored: len(final), Hotels: final}}) {
		outcome = "done"
	}
}

// fetchContent fetches hotel content in batches. A failed batch is logged
// and skipped; only consumer departure stops the phase.
func (p *Pipeline) fetchContent(ctx context.Context, hids []int64, language string, emit func(Event) bool, log zerolog.Logger) (map[int64]*domain.Content, bool) {
	batches := (len(hids) + p.cfg.ContentBatch - 1) / p.cfg.ContentBatch
	if !emit(Event{Type: EventContentStart, Data: BatchFetchStartData{TotalHotels: len(hids), TotalBatches: batches}}) {
		return nil, false
	}

	content := make(map[int64]*domain.Content, len(hids))
	for lo := 0; lo < len(hids); lo += p.cfg.ContentBatch {
		if ctx.Err() != nil {
			return nil, false
		}
		hi := min(lo+p.cfg.ContentBatch, len(hids))
		items, err := p.inv.GetContent(ctx, hids[lo:hi], language)
		if err != nil {
			log.Warn().Err(err).Int("batch_start", lo).Msg("content batch failed, skipping")
			continue
		}
		for i := range items {
			content[items[i].HID] = &items[i]
		}
	}

	if !emit(Event{Type: EventContentDone, Data: ContentDoneData{HotelsWithContent: len(content), TotalHotels: len(hids)}}) {
		return nil, false
	}
	return content, true
}

// reviewLanguages returns ru and en plus the request language, deduplicated.
func reviewLanguages(requestLang string) []string {
	langs := []string{"ru", "en"}
	if requestLang != "" && requestLang != "ru" && requestLang != "en" {
		langs = append(langs, requestLang)
	}
	return langs
}

// fetchReviews fetches raw reviews per batch per language and tags each
// review with the language it was fetched under.
func (p *Pipeline) fetchReviews(ctx context.Context, hids []int64, language string, emit func(Event) bool, log zerolog.Logger) (map[int64][]domain.RawReview, bool) {
	batches := (len(hids) + p.cfg.ReviewsBatch - 1) / p.cfg.ReviewsBatch
	if !emit(Event{Type: EventReviewsStart, Data: BatchFetchStartData{TotalHotels: len(hids), TotalBatches: batches}}) {
		return nil, false
	}

	raw := make(map[int64][]domain.RawReview)
	for lo := 0; lo < len(hids); lo += p.cfg.ReviewsBatch {
		hi := min(lo+p.cfg.ReviewsBatch, len(hids))
		for _, lang := range reviewLanguages(language) {
			if ctx.Err() != nil {
				return nil, false
			}
			items, err := p.inv.GetReviews(ctx, hids[lo:hi], lang)
			if err != nil {
				log.Warn().Err(err).Str("language", lang).Int("batch_start", lo).Msg("reviews batch failed, skipping")
				continue
			}
			for _, hr := range items {
				for _, r := range hr.Reviews {
					r.Language = lang
					raw[hr.HID] = append(raw[hr.HID], r)
				}
			}
		}
	}

	if !emit(Event{Type: EventReviewsDone, Data: ReviewsDoneData{HotelsWithReviews: len(raw), TotalHotels: len(hids)}}) {
		return nil, false
	}
	return raw, true
}

// finalize joins the score verdicts back onto the presorted candidates,
// keeping the verdicts' score order. Hotels the provider dropped are absent.
func (p *Pipeline) finalize(candidates []domain.CombinedHotel, scores []HotelScore, req Request) []domain.ScoredHotel {
	byID := make(map[string]domain.CombinedHotel, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	final := make([]domain.ScoredHotel, 0, len(scores))
	for _, sc := range scores {
		c, ok := byID[sc.HotelID]
		if !ok {
			continue
		}
		final = append(final, domain.ScoredHotel{
			CombinedHotel:    c,
			Score:            sc.Score,
			TopReasons:       sc.TopReasons,
			ScorePenalties:   sc.ScorePenalties,
			SelectedRateHash: sc.SelectedRateHash,
			BookingURL:       BookingURL(c, req.Checkin, req.Checkout, req.Guests, req.RegionID),
		})
	}
	return final
}

// summarize runs the briefing phase. It is best effort: failures are logged
// and the run still finishes with done.
func (p *Pipeline) summarize(ctx context.Context, provider domain.ScoringProvider, final []domain.ScoredHotel, preferences string, nights int, emit func(Event) bool, log zerolog.Logger) {
	if len(final) == 0 {
		return
	}
	topN := min(p.cfg.SummaryTopN, len(final))
	if !emit(Event{Type: EventSummaryStart, Data: SummaryStartData{TopHotels: topN}}) {
		return
	}
	summary, err := Summarize(ctx, provider, p.cfg.ScoringModel, final, preferences, topN, nights)
	if err != nil {
		log.Warn().Err(err).Msg("summary generation failed, continuing without it")
		return
	}
	emit(Event{Type: EventSummaryDone, Data: SummaryDoneData{Summary: summary}})
}

// nightsBetween parses the stay dates, clamping to at least one night.
func nightsBetween(checkin, checkout string) int {
	ci, err1 := time.Parse("2006-01-02", checkin)
	co, err2 := time.Parse("2006-01-02", checkout)
	if err1 != nil || err2 != nil {
		return 1
	}
	n := int(co.Sub(ci).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}
