package search

import (
	"fmt"
	"testing"

	"hotelscout/internal/domain"
)

func ratedHotel(id string, total string, daily ...string) domain.Hotel {
	return domain.Hotel{
		ID: id,
		Rates: []domain.RateOffer{{
			MatchHash:   "m-" + id,
			DailyPrices: daily,
			PaymentOptions: domain.PaymentOptions{PaymentTypes: []domain.PaymentType{{
				ShowAmount: total, ShowCurrencyCode: "EUR",
			}}},
		}},
	}
}

func fptr(v float64) *float64 { return &v }

func TestPerNightPrice(t *testing.T) {
	cases := []struct {
		name   string
		hotel  domain.Hotel
		nights int
		want   *float64
	}{
		{"daily average wins", ratedHotel("a", "300", "100", "110", "90"), 3, fptr(100)},
		{"fallback total over nights", ratedHotel("a", "300"), 3, fptr(100)},
		{"decimal comma", ratedHotel("a", "99,50"), 1, fptr(99.5)},
		{"zero price is unusable", ratedHotel("a", "0"), 1, nil},
		{"garbage price is unusable", ratedHotel("a", "n/a"), 1, nil},
		{"no rates", domain.Hotel{ID: "a"}, 1, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PerNightPrice(tc.hotel, tc.nights)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			if got != nil && *got != *tc.want {
				t.Fatalf("got %v, want %v", *got, *tc.want)
			}
		})
	}
}

func TestPerNightPrice_PicksCheapestOffer(t *testing.T) {
	h := domain.Hotel{ID: "a", Rates: []domain.RateOffer{
		ratedHotel("x", "500").Rates[0],
		ratedHotel("y", "200").Rates[0],
		ratedHotel("z", "350").Rates[0],
	}}
	got := PerNightPrice(h, 2)
	if got == nil || *got != 100 {
		t.Fatalf("want 100 per night from cheapest total, got %v", got)
	}
}

func TestFilterByPrice(t *testing.T) {
	hotels := []domain.Hotel{
		ratedHotel("cheap", "60"),
		ratedHotel("mid", "150"),
		ratedHotel("pricey", "900"),
		ratedHotel("unpriced", "n/a"),
	}

	t.Run("no bounds is identity", func(t *testing.T) {
		got := FilterByPrice(hotels, nil, nil, 1)
		if len(got) != len(hotels) {
			t.Fatalf("got %d hotels, want %d", len(got), len(hotels))
		}
	})

	t.Run("bounds exclude unpriced", func(t *testing.T) {
		got := FilterByPrice(hotels, fptr(50), fptr(200), 1)
		if len(got) != 2 {
			t.Fatalf("got %d hotels, want 2", len(got))
		}
		for _, h := range got {
			if h.ID == "unpriced" || h.ID == "pricey" {
				t.Fatalf("hotel %q should be filtered out", h.ID)
			}
		}
	})

	t.Run("max only", func(t *testing.T) {
		got := FilterByPrice(hotels, nil, fptr(100), 1)
		if len(got) != 1 || got[0].ID != "cheap" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})
}

func TestFilterUnrealistic(t *testing.T) {
	hotels := []domain.Hotel{
		ratedHotel("suspicious", "2"),
		ratedHotel("fine", "150"),
		ratedHotel("luxury", "900"),
		ratedHotel("unpriced", ""),
	}
	got := FilterUnrealistic(hotels, 10, 1)
	if len(got) != 3 {
		t.Fatalf("got %d hotels, want 3: %+v", len(got), ids(got))
	}
	for _, h := range got {
		if h.ID == "suspicious" {
			t.Fatalf("sub-floor hotel must be dropped")
		}
	}

	// Unpriceable hotels are kept: absence of a price is not evidence of a
	// fake listing.
	found := false
	for _, h := range got {
		if h.ID == "unpriced" {
			found = true
		}
	}
	if !found {
		t.Fatalf("unpriced hotel must survive the floor filter")
	}
}

func ids(hotels []domain.Hotel) []string {
	out := make([]string, len(hotels))
	for i, h := range hotels {
		out[i] = h.ID
	}
	return out
}

func TestFilterRatesByPrice(t *testing.T) {
	rates := []domain.RateOffer{
		ratedHotel("a", "100").Rates[0],
		ratedHotel("b", "400").Rates[0],
	}
	got := FilterRatesByPrice(rates, nil, fptr(200), 1)
	if len(got) != 1 || got[0].MatchHash != "m-a" {
		t.Fatalf("unexpected rates: %+v", got)
	}
	if got := FilterRatesByPrice(rates, nil, nil, 1); len(got) != 2 {
		t.Fatalf("no bounds must keep all rates")
	}
}

func TestParsePrice(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
		ok   bool
	}{
		{"120", 120, true},
		{"120.50", 120.5, true},
		{"120,50", 120.5, true},
		{" 99 ", 99, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	} {
		t.Run(fmt.Sprintf("%q", tc.in), func(t *testing.T) {
			got, ok := parsePrice(tc.in)
			if ok != tc.ok || (ok && got != tc.want) {
				t.Fatalf("parsePrice(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}
