package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a request body that cannot be normalized into texts.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingCredential is returned when no upstream API key is configured.
	ErrMissingCredential = errors.New("embedding API key is not configured")
	// ErrUpstreamTimeout is returned when the upstream call exceeds its deadline.
	ErrUpstreamTimeout = errors.New("upstream request timed out")
	// ErrUnexpected wraps every other failure while talking to the upstream.
	ErrUnexpected = errors.New("embedding failed")
)

// UpstreamError is a non-200 answer from the embedding provider.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed: %d", e.StatusCode)
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
