package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"hotelscout/internal/domain"
)

// Registry resolves a scoring provider by model name. Providers are probed
// in order; the last one must match everything (default-last semantics).
type Registry struct {
	providers []domain.ScoringProvider
}

func NewRegistry(providers ...domain.ScoringProvider) *Registry {
	return &Registry{providers: providers}
}

// Resolve returns the first provider whose matcher accepts the model name,
// falling back to the last registered provider.
func (r *Registry) Resolve(model string) domain.ScoringProvider {
	for _, p := range r.providers {
		if p.Matches(model) {
			return p
		}
	}
	return r.providers[len(r.providers)-1]
}

// EstimateTokens estimates through the provider resolved for model.
func (r *Registry) EstimateTokens(model, text string) int {
	return r.Resolve(model).EstimateTokens(text)
}

// unmarshalOutput decodes the model's text answer into out, tolerating
// markdown code fences around the JSON body.
func unmarshalOutput(provider, text string, out any) error {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return &ValidationError{Provider: provider, Reason: "empty completion"}
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(out); err != nil {
		return &ValidationError{Provider: provider, Reason: err.Error()}
	}
	return nil
}
