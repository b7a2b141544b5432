// internal/adapters/etg/client.go
package etg

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hotelscout/internal/adapters/observability"
	"hotelscout/internal/domain"
)

// Client talks to the ETG B2B v3 API. All endpoints are POST-with-JSON and
// answer with an {"status","data","error"} envelope.
type Client struct {
	base  string
	hc    *http.Client
	keyID string
	key   string
	rl    *rate.Limiter
}

func New(base, keyID, key string, timeout time.Duration, rps int) (*Client, error) {
	if keyID == "" || key == "" {
		return nil, fmt.Errorf("API credentials are required")
	}
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: timeout},
		keyID: keyID,
		key:   key,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrAuth    = errors.New("etg: authentication failed")
	ErrAPI     = errors.New("etg: api error")
	ErrNetwork = errors.New("etg: network error")
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  json.RawMessage `json:"error"`
}

// ---- Public API ----

func (c *Client) SearchByRegion(ctx context.Context, p domain.SearchParams) (domain.SearchResults, error) {
	payload := map[string]any{
		"region_id": p.RegionID,
		"checkin":   p.Checkin,
		"checkout":  p.Checkout,
		"residency": p.Residency,
	}
	if len(p.Guests) > 0 {
		payload["guests"] = p.Guests
	}
	if p.Currency != "" {
		payload["currency"] = p.Currency
	}
	if p.Language != "" {
		payload["language"] = p.Language
	}
	if p.Limit > 0 {
		payload["hotels_limit"] = p.Limit
	}

	var out struct {
		Hotels      []domain.Hotel `json:"hotels"`
		TotalHotels int            `json:"total_hotels"`
	}
	if err := c.post(ctx, "/api/b2b/v3/search/serp/region/", payload, &out); err != nil {
		return domain.SearchResults{}, err
	}
	return domain.SearchResults{Hotels: out.Hotels, TotalHotels: out.TotalHotels}, nil
}

func (c *Client) GetContent(ctx context.Context, hids []int64, language string) ([]domain.Content, error) {
	var out []domain.Content
	err := c.post(ctx, "/api/content/v1/hotel_content_by_ids/", map[string]any{
		"hids":     hids,
		"language": language,
	}, &out)
	return out, err
}

func (c *Client) GetReviews(ctx context.Context, hids []int64, language string) ([]domain.HotelReviews, error) {
	var out []domain.HotelReviews
	err := c.post(ctx, "/api/content/v1/hotel_reviews_by_ids/", map[string]any{
		"hids":     hids,
		"language": language,
	}, &out)
	return out, err
}

func (c *Client) SuggestRegion(ctx context.Context, query, language string) ([]domain.Region, error) {
	var out struct {
		Regions []domain.Region `json:"regions"`
	}
	err := c.post(ctx, "/api/b2b/v3/search/multicomplete/", map[string]any{
		"query":    query,
		"language": language,
	}, &out)
	return out.Regions, err
}

// ---- Internals ----

// post performs a POST with client-side rate limiting and retries on 429 and
// transient 5xx, honoring Retry-After when provided. On success the
// envelope's data field is decoded into out.
func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.keyID, c.key)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("etg", endpoint, 0, time.Since(start))
			lastErr = fmt.Errorf("%w: %v", ErrNetwork, err)
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("etg", endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusOK:
			err := decodeEnvelope(resp.Body, out)
			resp.Body.Close()
			return err

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return ErrAuth

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%w: remote %d", ErrNetwork, resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%w: HTTP %d: %s", ErrAPI, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

func decodeEnvelope(r io.Reader, out any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("%w: invalid JSON response: %v", ErrAPI, err)
	}
	if env.Status != "ok" && len(env.Error) > 0 && string(env.Error) != "null" {
		return fmt.Errorf("%w: %s", ErrAPI, strings.TrimSpace(string(env.Error)))
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: unexpected data shape: %v", ErrAPI, err)
	}
	return nil
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
