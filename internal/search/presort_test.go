package search

import (
	"testing"

	"hotelscout/internal/domain"
)

func candidate(id, kind string, stars int, avg float64, total int) domain.CombinedHotel {
	c := domain.CombinedHotel{
		Hotel:   domain.Hotel{ID: id},
		Content: &domain.Content{Kind: kind, StarRating: stars},
	}
	if avg > 0 {
		c.Reviews.AvgRating = &avg
	}
	c.Reviews.TotalReviews = total
	return c
}

func TestPrescore(t *testing.T) {
	// 4 stars = 20, avg 8.0 = 40, 30 reviews capped at 25.
	h := candidate("a", "Hotel", 4, 8, 30)
	if got := Prescore(h); got != 85 {
		t.Fatalf("prescore = %v, want 85", got)
	}

	// No reviews: stars only.
	h = candidate("b", "Hotel", 5, 0, 0)
	if got := Prescore(h); got != 25 {
		t.Fatalf("prescore = %v, want 25", got)
	}

	// No content at all: zero.
	if got := Prescore(domain.CombinedHotel{Hotel: domain.Hotel{ID: "c"}}); got != 0 {
		t.Fatalf("prescore = %v, want 0", got)
	}
}

func TestPresort_TierBeatsPrescore(t *testing.T) {
	// A strong hostel never displaces a weak resort when the limit bites.
	hostel := candidate("hostel", "Hostel", 3, 9.8, 25) // prescore 89
	resort := candidate("resort", "Resort", 3, 5.0, 0)  // prescore 40

	got := Presort([]domain.CombinedHotel{hostel, resort}, 1)
	if len(got) != 1 || got[0].ID != "resort" {
		t.Fatalf("want the tier-1 resort, got %+v", idsOf(got))
	}
}

func TestPresort_OrderWithinAndAcrossTiers(t *testing.T) {
	in := []domain.CombinedHotel{
		candidate("bnb", "BNB", 2, 9, 10),
		candidate("weak-hotel", "Hotel", 2, 6, 5),
		candidate("apart", "Apartment", 3, 8, 20),
		candidate("strong-hotel", "Hotel", 5, 9, 25),
	}

	got := Presort(in, 10)
	want := []string{"strong-hotel", "weak-hotel", "apart", "bnb"}
	if len(got) != len(want) {
		t.Fatalf("got %d hotels, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %q, want %q (full order %v)", i, got[i].ID, id, idsOf(got))
		}
	}
}

func TestPresort_LimitAndEmpty(t *testing.T) {
	in := []domain.CombinedHotel{
		candidate("a", "Hotel", 5, 9, 25),
		candidate("b", "Hotel", 4, 8, 25),
		candidate("c", "Hotel", 3, 7, 25),
	}
	if got := Presort(in, 2); len(got) != 2 {
		t.Fatalf("limit not honored: %d", len(got))
	}
	if got := Presort(nil, 10); got != nil {
		t.Fatalf("empty input must yield nil")
	}
	if got := Presort(in, 0); got != nil {
		t.Fatalf("zero limit must yield nil")
	}
}

func TestKindTier_UnknownKind(t *testing.T) {
	if kindTier("Weird_New_Kind") != 4 {
		t.Fatalf("unknown kinds belong in the lowest tier")
	}
	if kindTier("Castle") != 1 {
		t.Fatalf("Castle is tier 1")
	}
}

func idsOf(hotels []domain.CombinedHotel) []string {
	out := make([]string, len(hotels))
	for i, h := range hotels {
		out[i] = h.ID
	}
	return out
}
