package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// Claude: ~3.5 chars per token (Anthropic documentation).
const anthropicCharsPerToken = 3.5

// AnthropicProvider scores through the Claude messages API. Selected for
// model names with the "claude-" prefix.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

func NewAnthropic(apiKey string, timeout time.Duration) *AnthropicProvider {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		hc:      &http.Client{Timeout: timeout},
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (p *AnthropicProvider) WithBaseURL(u string) *AnthropicProvider {
	p.baseURL = u
	return p
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Matches(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

func (p *AnthropicProvider) EstimateTokens(text string) int {
	return int(float64(len(text)) / anthropicCharsPerToken)
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, model, prompt string, out any) error {
	reqBody := anthropicRequest{
		Model:       model,
		MaxTokens:   8192,
		Temperature: 0.2,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return &TransportError{Provider: p.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return &TransportError{Provider: p.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.hc.Do(req)
	if err != nil {
		return &TransportError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Provider: p.Name(), Status: resp.StatusCode}
	}

	var ar anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return &ValidationError{Provider: p.Name(), Reason: "undecodable response: " + err.Error()}
	}
	text := ""
	for _, c := range ar.Content {
		if c.Type == "text" {
			text = c.Text
			break
		}
	}
	return unmarshalOutput(p.Name(), text, out)
}
