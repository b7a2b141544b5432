package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini: ~4 chars per token (Google documentation).
const googleCharsPerToken = 4

// GoogleProvider scores through the Gemini generateContent API. It is the
// registry default: its matcher accepts every model name.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

func NewGoogle(apiKey string, timeout time.Duration) *GoogleProvider {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		baseURL: googleBaseURL,
		hc:      &http.Client{Timeout: timeout},
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (p *GoogleProvider) WithBaseURL(u string) *GoogleProvider {
	p.baseURL = u
	return p
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Matches(string) bool { return true }

func (p *GoogleProvider) EstimateTokens(text string) int {
	return len(text) / googleCharsPerToken
}

type googleRequest struct {
	Contents         []googleContent `json:"contents"`
	GenerationConfig googleGenConfig `json:"generationConfig"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}

func (p *GoogleProvider) Complete(ctx context.Context, model, prompt string, out any) error {
	reqBody := googleRequest{
		Contents: []googleContent{{Role: "user", Parts: []googlePart{{Text: prompt}}}},
		GenerationConfig: googleGenConfig{
			Temperature:      0.2,
			ResponseMimeType: "application/json",
		},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return &TransportError{Provider: p.Name(), Err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return &TransportError{Provider: p.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.hc.Do(req)
	if err != nil {
		return &TransportError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Provider: p.Name(), Status: resp.StatusCode}
	}

	var gr googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return &ValidationError{Provider: p.Name(), Reason: "undecodable response: " + err.Error()}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return &ValidationError{Provider: p.Name(), Reason: "no candidates returned"}
	}
	return unmarshalOutput(p.Name(), gr.Candidates[0].Content.Parts[0].Text, out)
}
