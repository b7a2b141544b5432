package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	httpserver "hotelscout/internal/adapters/http_server"
	redisad "hotelscout/internal/adapters/redis"
	"hotelscout/internal/domain"
	"hotelscout/internal/search"
)

type stubInventory struct {
	suggestHits int32
}

func (s *stubInventory) SearchByRegion(context.Context, domain.SearchParams) (domain.SearchResults, error) {
	return domain.SearchResults{
		Hotels: []domain.Hotel{{
			ID: "test_hotel", HID: 1,
			Rates: []domain.RateOffer{{
				MatchHash: "h1",
				PaymentOptions: domain.PaymentOptions{PaymentTypes: []domain.PaymentType{{
					ShowAmount: "200", ShowCurrencyCode: "EUR",
				}}},
			}},
		}},
		TotalHotels: 1,
	}, nil
}

func (s *stubInventory) GetContent(_ context.Context, hids []int64, _ string) ([]domain.Content, error) {
	out := make([]domain.Content, len(hids))
	for i, hid := range hids {
		out[i] = domain.Content{HID: hid, Name: "Test Hotel", Kind: "Hotel", StarRating: 4}
	}
	return out, nil
}

func (s *stubInventory) GetReviews(context.Context, []int64, string) ([]domain.HotelReviews, error) {
	return nil, nil
}

func (s *stubInventory) SuggestRegion(context.Context, string, string) ([]domain.Region, error) {
	atomic.AddInt32(&s.suggestHits, 1)
	return []domain.Region{{ID: 602, Name: "Berlin", Type: "City", CountryCode: "DE"}}, nil
}

// stubProvider answers every scoring call with one fixed verdict and every
// summary call with a fixed briefing, via the JSON contract.
type stubProvider struct{}

func (stubProvider) Name() string                { return "stub" }
func (stubProvider) Matches(string) bool         { return true }
func (stubProvider) EstimateTokens(s string) int { return len(s) / 4 }

func (stubProvider) Complete(_ context.Context, _, prompt string, out any) error {
	if strings.Contains(prompt, "travel advisor") {
		return json.Unmarshal([]byte(`{"overview":"one option","top_picks":[],"final_advice":"book it"}`), out)
	}
	return json.Unmarshal([]byte(`{"results":[{"hotel_id":"test_hotel","score":88,"top_reasons":["central"],"score_penalties":[],"selected_rate_hash":"h1"}]}`), out)
}

type stubResolver struct{}

func (stubResolver) Resolve(string) domain.ScoringProvider { return stubProvider{} }

func newTestServer(t *testing.T) (*httpserver.Server, *stubInventory) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)

	inv := &stubInventory{}
	pipeline := search.NewPipeline(inv, stubResolver{}, search.Config{
		ScoringModel: "stub-model",
		Scoring:      search.ScoringConfig{RetryBackoff: time.Millisecond},
	}, zerolog.Nop())

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Pipeline: pipeline,
		Inv:      inv,
		Cache:    cache,
		CacheTTL: 60,
	})
	return srv, inv
}

func validSearchBody() string {
	return `{
		"region_id": 602,
		"checkin": "2026-09-01",
		"checkout": "2026-09-03",
		"residency": "de",
		"guests": [{"adults": 2}]
	}`
}

func TestSearchStream_EventFrames(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/search/stream", strings.NewReader(validSearchBody()))
	rr := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	body := rr.Body.String()
	var types []string
	var searchIDs []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "event: ") {
			types = append(types, strings.TrimPrefix(line, "event: "))
		}
		if strings.HasPrefix(line, "id: ") {
			searchIDs = append(searchIDs, strings.TrimPrefix(line, "id: "))
		}
	}

	if len(types) == 0 || types[0] != "search_start" {
		t.Fatalf("first frame must be search_start, got %v", types)
	}
	if last := types[len(types)-1]; last != "done" {
		t.Fatalf("last frame must be done, got %v", types)
	}
	for _, id := range searchIDs {
		if id != searchIDs[0] {
			t.Fatalf("search id changed mid-stream")
		}
	}

	// The done frame carries the scored hotels.
	var done struct {
		Data struct {
			Hotels []domain.ScoredHotel `json:"hotels"`
		} `json:"data"`
	}
	lines := strings.Split(strings.TrimSpace(body), "\n")
	lastData := ""
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			lastData = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := json.Unmarshal([]byte(lastData), &done); err != nil {
		t.Fatalf("undecodable done frame: %v", err)
	}
	if len(done.Data.Hotels) != 1 || done.Data.Hotels[0].Score != 88 {
		t.Fatalf("unexpected done payload: %+v", done.Data.Hotels)
	}
	if done.Data.Hotels[0].SelectedRateHash == nil || *done.Data.Hotels[0].SelectedRateHash != "h1" {
		t.Fatalf("selected rate hash lost in transit")
	}
}

func TestSearchStream_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"missing region", `{"checkin":"2026-09-01","checkout":"2026-09-03","residency":"de","guests":[{"adults":2}]}`},
		{"checkout before checkin", `{"region_id":1,"checkin":"2026-09-03","checkout":"2026-09-01","residency":"de","guests":[{"adults":2}]}`},
		{"no guests", `{"region_id":1,"checkin":"2026-09-01","checkout":"2026-09-03","residency":"de","guests":[]}`},
		{"bad residency", `{"region_id":1,"checkin":"2026-09-01","checkout":"2026-09-03","residency":"germany","guests":[{"adults":2}]}`},
		{"inverted price bounds", `{"region_id":1,"checkin":"2026-09-01","checkout":"2026-09-03","residency":"de","guests":[{"adults":2}],"min_price_per_night":300,"max_price_per_night":100}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/search/stream", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			srv.Mux().ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Fatalf("content type = %q", ct)
			}
		})
	}
}

func TestSuggestRegions_CacheAside(t *testing.T) {
	srv, inv := newTestServer(t)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/v1/regions/suggest?q=Berlin&lang=en", nil)
		rr := httptest.NewRecorder()
		srv.Mux().ServeHTTP(rr, req)
		return rr
	}

	rr := get()
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Regions []domain.Region `json:"regions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("undecodable body: %v", err)
	}
	if len(resp.Regions) != 1 || resp.Regions[0].Name != "Berlin" {
		t.Fatalf("unexpected regions: %+v", resp.Regions)
	}

	// Second identical query is served from the cache.
	if rr := get(); rr.Code != http.StatusOK {
		t.Fatalf("second status = %d", rr.Code)
	}
	if hits := atomic.LoadInt32(&inv.suggestHits); hits != 1 {
		t.Fatalf("upstream hit %d times, want 1", hits)
	}
}

func TestSuggestRegions_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/v1/regions/suggest?q=b", nil)
	rr := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("short query: status = %d, want 400", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}
