package search

import (
	"sort"

	"hotelscout/internal/domain"
)

// kindTiers buckets property kinds into priority tiers (1 = most premium).
// Unknown kinds land in the lowest tier.
var kindTiers = map[string]int{
	// Tier 1: premium
	"Castle":               1,
	"Resort":               1,
	"Boutique_and_Design":  1,
	"Villas_and_Bungalows": 1,
	"Hotel":                1,
	// Tier 2: mid-tier
	"Apart-hotel": 2,
	"Sanatorium":  2,
	"Mini-hotel":  2,
	"Apartment":   2,
	"Guesthouse":  2,
	// Tier 3: budget/alternative
	"BNB":                 3,
	"Glamping":            3,
	"Cottages_and_Houses": 3,
	"Farm":                3,
	// Tier 4: low priority
	"Hostel":      4,
	"Camping":     4,
	"Unspecified": 4,
}

const defaultKindTier = 4

func kindTier(kind string) int {
	if t, ok := kindTiers[kind]; ok {
		return t
	}
	return defaultKindTier
}

// Prescore is the cheap heuristic quality score (0-100) used to rank hotels
// before the expensive LLM phase: stars 0-25, average rating 0-50, review
// count 0-25. A hotel with no reviews still scores on stars alone.
func Prescore(h domain.CombinedHotel) float64 {
	score := float64(h.StarRating()) * 5

	if h.Reviews.AvgRating != nil {
		score += (*h.Reviews.AvgRating / 10) * 50
	}
	total := h.Reviews.TotalReviews
	if total > 25 {
		total = 25
	}
	score += float64(total)

	return score
}

// Presort tiers hotels by property kind, ranks each tier by prescore
// descending (stable on ties), and fills the result tier by tier until limit
// is reached. A lower tier never displaces remaining higher-tier candidates.
func Presort(hotels []domain.CombinedHotel, limit int) []domain.CombinedHotel {
	if limit <= 0 || len(hotels) == 0 {
		return nil
	}

	type ranked struct {
		hotel    domain.CombinedHotel
		prescore float64
	}
	tiers := map[int][]ranked{}
	for _, h := range hotels {
		t := kindTier(h.Kind())
		tiers[t] = append(tiers[t], ranked{hotel: h, prescore: Prescore(h)})
	}

	result := make([]domain.CombinedHotel, 0, limit)
	for tier := 1; tier <= 4; tier++ {
		members := tiers[tier]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].prescore > members[j].prescore
		})
		for _, m := range members {
			if len(result) >= limit {
				return result
			}
			result = append(result, m.hotel)
		}
	}
	return result
}
