package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hotelscout/internal/domain"
)

// Summary is the model-written briefing over the top scored hotels. It is
// decorative: a failed summary never fails the run.
type Summary struct {
	Overview       string           `json:"overview"`
	TopPicks       []Recommendation `json:"top_picks"`
	Considerations []string         `json:"considerations,omitempty"`
	FinalAdvice    string           `json:"final_advice"`
}

type Recommendation struct {
	HotelID        string `json:"hotel_id"`
	HotelName      string `json:"hotel_name"`
	WhyRecommended string `json:"why_recommended"`
}

type summaryHotel struct {
	HotelID    string   `json:"hotel_id"`
	Name       string   `json:"name,omitempty"`
	Stars      int      `json:"stars"`
	Kind       string   `json:"kind,omitempty"`
	Score      int      `json:"score"`
	AvgRating  *float64 `json:"avg_rating,omitempty"`
	PerNight   *float64 `json:"price_per_night,omitempty"`
	TopReasons []string `json:"top_reasons,omitempty"`
	Penalties  []string `json:"score_penalties,omitempty"`
}

const summaryPrompt = `You are a travel advisor. A traveler searched for hotels with these preferences:

%s

The top candidates, already scored for fit (higher is better):

%s

Write a short decision brief as JSON:
{"overview": "2-3 sentences on the overall options",
 "top_picks": [{"hotel_id": ..., "hotel_name": ..., "why_recommended": "one sentence"}],
 "considerations": ["tradeoffs or caveats worth knowing"],
 "final_advice": "one sentence on how to choose"}

Pick at most 3 top_picks. Only use hotel_id values from the list above.`

// Summarize asks the provider for a briefing over the first topN scored
// hotels. Nights is used to derive a per-night price for each candidate.
func Summarize(ctx context.Context, provider domain.ScoringProvider, model string, hotels []domain.ScoredHotel, preferences string, topN, nights int) (Summary, error) {
	if topN <= 0 {
		topN = 10
	}
	if len(hotels) > topN {
		hotels = hotels[:topN]
	}
	if len(hotels) == 0 {
		return Summary{}, fmt.Errorf("no hotels to summarize")
	}

	compact := make([]summaryHotel, len(hotels))
	for i, h := range hotels {
		sh := summaryHotel{
			HotelID:    h.ID,
			Stars:      h.StarRating(),
			Kind:       h.Kind(),
			Score:      h.Score,
			AvgRating:  h.Reviews.AvgRating,
			PerNight:   PerNightPrice(h.Hotel, nights),
			TopReasons: h.TopReasons,
			Penalties:  h.ScorePenalties,
		}
		if h.Content != nil {
			sh.Name = h.Content.Name
		}
		compact[i] = sh
	}
	payload, err := json.Marshal(compact)
	if err != nil {
		return Summary{}, err
	}

	var out Summary
	if err := provider.Complete(ctx, model, fmt.Sprintf(summaryPrompt, preferences, payload), &out); err != nil {
		return Summary{}, err
	}

	// Drop picks referencing hotels outside the candidate list.
	known := make(map[string]struct{}, len(hotels))
	for _, h := range hotels {
		known[h.ID] = struct{}{}
	}
	kept := out.TopPicks[:0]
	for _, p := range out.TopPicks {
		if _, ok := known[p.HotelID]; ok {
			kept = append(kept, p)
		}
	}
	out.TopPicks = kept

	if strings.TrimSpace(out.Overview) == "" && len(out.TopPicks) == 0 {
		return Summary{}, fmt.Errorf("provider returned an empty summary")
	}
	return out, nil
}
