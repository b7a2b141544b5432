package search

import (
	"strconv"
	"strings"

	"hotelscout/internal/domain"
)

// parsePrice parses a price string, accepting a decimal comma. Only strictly
// positive values count as usable.
func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// offerTotalPrice extracts the displayed total from an offer's first payment
// type. Offers with zero, missing, or non-numeric prices yield nil, never 0.
func offerTotalPrice(r domain.RateOffer) *float64 {
	pts := r.PaymentOptions.PaymentTypes
	if len(pts) == 0 {
		return nil
	}
	if p, ok := parsePrice(pts[0].ShowAmount); ok {
		return &p
	}
	return nil
}

// validDailyPrices parses an offer's daily price entries, dropping anything
// unparseable or non-positive.
func validDailyPrices(r domain.RateOffer) []float64 {
	out := make([]float64, 0, len(r.DailyPrices))
	for _, s := range r.DailyPrices {
		if p, ok := parsePrice(s); ok {
			out = append(out, p)
		}
	}
	return out
}

// OfferPerNight computes an offer's average per-night price from its daily
// entries, falling back to total/nights when no daily entry parses.
func OfferPerNight(r domain.RateOffer, nights int) *float64 {
	if prices := validDailyPrices(r); len(prices) > 0 {
		sum := 0.0
		for _, p := range prices {
			sum += p
		}
		avg := sum / float64(len(prices))
		return &avg
	}
	total := offerTotalPrice(r)
	if total == nil {
		return nil
	}
	if nights < 1 {
		nights = 1
	}
	avg := *total / float64(nights)
	return &avg
}

// PerNightPrice derives a comparable per-night price for a hotel: cheapest
// offer by total price, then that offer's per-night average. Returns nil when
// no offer yields a usable positive price; callers treat nil as "exclude from
// price filtering", never as zero.
func PerNightPrice(h domain.Hotel, nights int) *float64 {
	var cheapest *domain.RateOffer
	minTotal := 0.0
	for i := range h.Rates {
		total := offerTotalPrice(h.Rates[i])
		if total == nil {
			continue
		}
		if cheapest == nil || *total < minTotal {
			minTotal = *total
			cheapest = &h.Rates[i]
		}
	}
	if cheapest == nil {
		return nil
	}
	return OfferPerNight(*cheapest, nights)
}

// FilterByPrice keeps hotels whose per-night price falls inside [min, max].
// With both bounds nil it is the identity. Hotels without a usable price are
// excluded while any bound is set.
func FilterByPrice(hotels []domain.Hotel, min, max *float64, nights int) []domain.Hotel {
	if min == nil && max == nil {
		return hotels
	}
	out := make([]domain.Hotel, 0, len(hotels))
	for _, h := range hotels {
		p := PerNightPrice(h, nights)
		if p == nil {
			continue
		}
		if min != nil && *p < *min {
			continue
		}
		if max != nil && *p > *max {
			continue
		}
		out = append(out, h)
	}
	return out
}

// FilterUnrealistic drops hotels priced below floor per night. Unpriceable
// hotels stay in; only confirmed near-zero listings are removed.
func FilterUnrealistic(hotels []domain.Hotel, floor float64, nights int) []domain.Hotel {
	if floor <= 0 {
		return hotels
	}
	out := make([]domain.Hotel, 0, len(hotels))
	for _, h := range hotels {
		if p := PerNightPrice(h, nights); p != nil && *p < floor {
			continue
		}
		out = append(out, h)
	}
	return out
}

// FilterRatesByPrice keeps offers whose per-night price falls inside
// [min, max]. With both bounds nil it is the identity.
func FilterRatesByPrice(rates []domain.RateOffer, min, max *float64, nights int) []domain.RateOffer {
	if min == nil && max == nil {
		return rates
	}
	out := make([]domain.RateOffer, 0, len(rates))
	for _, r := range rates {
		p := OfferPerNight(r, nights)
		if p == nil {
			continue
		}
		if min != nil && *p < *min {
			continue
		}
		if max != nil && *p > *max {
			continue
		}
		out = append(out, r)
	}
	return out
}
