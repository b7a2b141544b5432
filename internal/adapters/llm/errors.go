package llm

import "fmt"

// ValidationError means the model answered but the output was malformed or
// did not fit the expected schema. Callers may retry.
type ValidationError struct {
	Provider string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid model output: %s", e.Provider, e.Reason)
}

// Retryable marks the error class for callers that only see the
// ScoringProvider interface.
func (e *ValidationError) Retryable() bool { return true }

// TransportError means the provider could not be reached or failed at the
// HTTP/runtime level. Not retryable; the scoring phase aborts on it.
type TransportError struct {
	Provider string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: provider returned HTTP %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
