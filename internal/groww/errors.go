package groww

import "fmt"

// AuthenticationError means the session could not be (re)established after
// exhausting refresh attempts. The orchestrator treats this as fatal for the
// whole job rather than a per-symbol failure.
type AuthenticationError struct {
	Cause error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed: %v", e.Cause)
	}
	return "authentication failed"
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// APIError is returned once all retries for a single request are exhausted.
// It carries the last observed status and cause so the caller can decide
// between per-symbol and job-level handling.
type APIError struct {
	Status   int
	Attempts int
	Cause    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream request failed after %d attempts (last status %d): %v",
		e.Attempts, e.Status, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

// NormalizationError means a payload could not be mapped onto the canonical
// shape. It fails the single symbol, never the whole fetch.
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization failed: %s", e.Reason)
}
