package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegistry_DefaultLast(t *testing.T) {
	reg := NewRegistry(
		NewAnthropic("k", time.Second),
		NewGoogle("k", time.Second),
	)

	if got := reg.Resolve("claude-sonnet-4"); got.Name() != "anthropic" {
		t.Fatalf("claude- prefix must go to anthropic, got %s", got.Name())
	}
	if got := reg.Resolve("gemini-3-flash-preview"); got.Name() != "google" {
		t.Fatalf("gemini model must fall through to google, got %s", got.Name())
	}
	if got := reg.Resolve("some-future-model"); got.Name() != "google" {
		t.Fatalf("unknown models must hit the default, got %s", got.Name())
	}
}

func TestRegistry_EstimateTokens(t *testing.T) {
	reg := NewRegistry(
		NewAnthropic("k", time.Second),
		NewGoogle("k", time.Second),
	)
	text := "0123456789012345678901234567" // 28 chars

	if got := reg.EstimateTokens("gemini-x", text); got != 7 {
		t.Fatalf("google estimate = %d, want 7", got)
	}
	if got := reg.EstimateTokens("claude-x", text); got != 8 {
		t.Fatalf("anthropic estimate = %d, want 8", got)
	}
}

func TestUnmarshalOutput_StripsCodeFences(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	for _, text := range []string{
		`{"a": 1}`,
		"```json\n{\"a\": 1}\n```",
		"```\n{\"a\": 1}\n```",
		"  {\"a\": 1}  ",
	} {
		out.A = 0
		if err := unmarshalOutput("test", text, &out); err != nil {
			t.Fatalf("unmarshalOutput(%q): %v", text, err)
		}
		if out.A != 1 {
			t.Fatalf("unmarshalOutput(%q): a = %d", text, out.A)
		}
	}
}

func TestUnmarshalOutput_ErrorsAreValidation(t *testing.T) {
	var out map[string]any
	for _, text := range []string{"", "```json\n```", "{broken"} {
		err := unmarshalOutput("test", text, &out)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("unmarshalOutput(%q): want ValidationError, got %v", text, err)
		}
		if !ve.Retryable() {
			t.Fatalf("validation errors must be retryable")
		}
	}
}

func TestGoogle_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["contents"]; !ok {
			t.Errorf("missing contents in request")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": `{"ok": true}`}}},
			}},
		})
	}))
	defer ts.Close()

	p := NewGoogle("test-key", time.Second).WithBaseURL(ts.URL)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := p.Complete(context.Background(), "gemini-3-flash-preview", "prompt", &out); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !out.OK {
		t.Fatalf("output not decoded")
	}
}

func TestGoogle_HTTPErrorIsTransport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer ts.Close()

	p := NewGoogle("k", time.Second).WithBaseURL(ts.URL)
	err := p.Complete(context.Background(), "m", "prompt", &struct{}{})
	var te *TransportError
	if !errors.As(err, &te) || te.Status != 503 {
		t.Fatalf("want TransportError 503, got %v", err)
	}
}

func TestGoogle_NoCandidatesIsValidation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer ts.Close()

	p := NewGoogle("k", time.Second).WithBaseURL(ts.URL)
	err := p.Complete(context.Background(), "m", "prompt", &struct{}{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestAnthropic_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "thinking", "text": "..."},
				{"type": "text", "text": "```json\n{\"ok\": true}\n```"},
			},
		})
	}))
	defer ts.Close()

	p := NewAnthropic("test-key", time.Second).WithBaseURL(ts.URL)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := p.Complete(context.Background(), "claude-sonnet-4", "prompt", &out); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !out.OK {
		t.Fatalf("fenced output not decoded")
	}
}
