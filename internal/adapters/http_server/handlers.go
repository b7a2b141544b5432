// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotelscout/internal/domain"
	"hotelscout/internal/search"
)

type Handlers struct {
	Pipeline *search.Pipeline
	Inv      domain.InventoryClient
	Cache    domain.Cache
	CacheTTL int // seconds
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

var (
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	countryRe  = regexp.MustCompile(`^[A-Za-z]{2}$`)
	currencyRe = regexp.MustCompile(`^[A-Za-z]{3}$`)
	languageRe = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

func selectLang(al string) string {
	s := strings.ToLower(al)
	if strings.HasPrefix(s, "ru") {
		return "ru"
	}
	return "en"
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// validateSearch returns a human-readable reason when the request cannot be
// sent upstream as-is.
func validateSearch(req search.Request) string {
	if req.RegionID <= 0 {
		return "region_id must be a positive integer"
	}
	if !dateRe.MatchString(req.Checkin) || !dateRe.MatchString(req.Checkout) {
		return "checkin and checkout must be YYYY-MM-DD"
	}
	ci, err1 := time.Parse("2006-01-02", req.Checkin)
	co, err2 := time.Parse("2006-01-02", req.Checkout)
	if err1 != nil || err2 != nil {
		return "checkin and checkout must be valid dates"
	}
	if !co.After(ci) {
		return "checkout must be after checkin"
	}
	if len(req.Guests) == 0 {
		return "at least one guest room is required"
	}
	for _, g := range req.Guests {
		if g.Adults < 1 {
			return "each room needs at least one adult"
		}
		for _, age := range g.Children {
			if age < 0 || age > 17 {
				return "child ages must be between 0 and 17"
			}
		}
	}
	if !countryRe.MatchString(req.Residency) {
		return "residency must be a 2-letter country code"
	}
	if req.Currency != "" && !currencyRe.MatchString(req.Currency) {
		return "currency must be a 3-letter code"
	}
	if req.Language != "" && !languageRe.MatchString(req.Language) {
		return "language must be a 2-letter code"
	}
	if req.MinPrice != nil && *req.MinPrice <= 0 {
		return "min_price_per_night must be positive"
	}
	if req.MaxPrice != nil && *req.MaxPrice <= 0 {
		return "max_price_per_night must be positive"
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		return "min_price_per_night must not exceed max_price_per_night"
	}
	return ""
}

// searchStream runs one search and streams its progress as server-sent
// events. Each pipeline event becomes one SSE frame; the search id rides in
// the frame id. Client disconnect cancels the run via the request context.
func (h *Handlers) searchStream(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "request body must be valid JSON")
		return
	}
	if reason := validateSearch(req); reason != "" {
		writeProblem(w, http.StatusBadRequest, "Invalid search", reason)
		return
	}
	if req.Language == "" {
		req.Language = selectLang(r.Header.Get("Accept-Language"))
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "response writer cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.Pipeline.Run(r.Context(), req) {
		if err := writeSSE(w, ev); err != nil {
			// Client is gone; the context cancel stops the pipeline.
			log.Debug().Err(err).Str("search_id", ev.SearchID).Msg("event stream write failed")
			return
		}
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, ev search.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + string(ev.Type) + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("id: " + ev.SearchID + "\n")); err != nil {
		return err
	}
	_, err = w.Write(append(append([]byte("data: "), data...), '\n', '\n'))
	return err
}

// suggestRegions resolves a free-text destination to region candidates,
// cache-aside over redis. Suggestions are stable reference data, so a plain
// TTL is enough.
func (h *Handlers) suggestRegions(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < 2 {
		writeProblem(w, http.StatusBadRequest, "Invalid query", "q must be at least 2 characters")
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = selectLang(r.Header.Get("Accept-Language"))
	}
	if !languageRe.MatchString(lang) {
		writeProblem(w, http.StatusBadRequest, "Invalid lang", "lang must be a 2-letter code")
		return
	}

	key := "regions:suggest:" + lang + ":" + strings.ToLower(q)
	var regions []domain.Region
	hit, err := h.Cache.Get(r.Context(), key, &regions)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("suggest cache read failed")
	}
	if !hit {
		regions, err = h.Inv.SuggestRegion(r.Context(), q, lang)
		if err != nil {
			writeProblem(w, http.StatusBadGateway, "Upstream failure", "region suggestions unavailable")
			return
		}
		if err := h.Cache.Set(r.Context(), key, regions, h.CacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("suggest cache write failed")
		}
	}

	resp := struct {
		Regions []domain.Region `json:"regions"`
	}{Regions: regions}

	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write suggestRegions body")
	}
}
