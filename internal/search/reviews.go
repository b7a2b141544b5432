package search

import (
	"math"
	"sort"
	"time"

	"hotelscout/internal/domain"
)

const (
	DefaultReviewMaxAgeYears = 5
	DefaultReviewSample      = 50
)

// qualitativeScale maps string-valued sub-ratings (wifi, hygiene) onto the
// numeric 10-point scale before averaging.
var qualitativeScale = map[string]float64{
	"perfect": 10,
	"good":    8,
	"average": 6,
	"poor":    4,
	"bad":     2,
}

// AggregateReviews turns raw per-hotel review lists into aggregated ratings
// plus a bounded recency sample.
//
// Averages are computed over the complete unfiltered set and frozen before
// the age filter runs; trimming the sample never changes them. now anchors
// the age cutoff.
func AggregateReviews(raw map[int64][]domain.RawReview, maxAgeYears, maxSample int, now time.Time) map[int64]domain.AggregatedReviews {
	if maxAgeYears <= 0 {
		maxAgeYears = DefaultReviewMaxAgeYears
	}
	if maxSample <= 0 {
		maxSample = DefaultReviewSample
	}
	cutoff := now.Add(-time.Duration(maxAgeYears) * 365 * 24 * time.Hour)

	out := make(map[int64]domain.AggregatedReviews, len(raw))
	for hid, reviews := range raw {
		agg := domain.AggregatedReviews{
			TotalReviews: len(reviews),
			AvgRating:    avgRating(reviews),
			Detailed:     detailedAverages(reviews),
		}

		// Age filter runs strictly after the averages above are computed.
		type dated struct {
			r domain.RawReview
			t time.Time
		}
		recent := make([]dated, 0, len(reviews))
		for _, r := range reviews {
			t, ok := parseCreated(r.Created)
			if !ok || t.Before(cutoff) {
				continue
			}
			recent = append(recent, dated{r: r, t: t})
		}
		agg.FilteredByAge = len(reviews) - len(recent)

		sort.SliceStable(recent, func(i, j int) bool {
			return recent[i].t.After(recent[j].t)
		})
		if len(recent) > maxSample {
			recent = recent[:maxSample]
		}
		agg.Sample = make([]domain.RawReview, len(recent))
		for i, d := range recent {
			agg.Sample[i] = d.r
		}

		out[hid] = agg
	}
	return out
}

// avgRating is the mean of all nonzero ratings, rounded to one decimal, nil
// when no review carries a rating.
func avgRating(reviews []domain.RawReview) *float64 {
	sum, n := 0.0, 0
	for _, r := range reviews {
		if r.Rating > 0 {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return nil
	}
	v := round1(sum / float64(n))
	return &v
}

func detailedAverages(reviews []domain.RawReview) domain.DetailedAverages {
	var sums [8]float64
	var counts [8]int

	for _, r := range reviews {
		d := r.Detailed
		if d == nil {
			continue
		}
		numeric := [...]float64{d.Cleanness, d.Location, d.Price, d.Services, d.Room, d.Meal}
		for i, v := range numeric {
			if v > 0 {
				sums[i] += v
				counts[i]++
			}
		}
		if v, ok := qualitativeScale[d.WiFi]; ok {
			sums[6] += v
			counts[6]++
		}
		if v, ok := qualitativeScale[d.Hygiene]; ok {
			sums[7] += v
			counts[7]++
		}
	}

	avg := func(i int) *float64 {
		if counts[i] == 0 {
			return nil
		}
		v := round1(sums[i] / float64(counts[i]))
		return &v
	}
	return domain.DetailedAverages{
		Cleanness: avg(0),
		Location:  avg(1),
		Price:     avg(2),
		Services:  avg(3),
		Room:      avg(4),
		Meal:      avg(5),
		WiFi:      avg(6),
		Hygiene:   avg(7),
	}
}

// parseCreated accepts RFC3339 timestamps and bare dates. Reviews with
// unparseable timestamps stay in the frozen averages but are excluded from
// the recency sample.
func parseCreated(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
