package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

// LLMClient is the reasoning engine boundary. Implementations return the raw
// model output as JSON; callers own parsing, validation and retry policy.
type LLMClient interface {
	Name() string
	Close() error
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
}

// Upstream failure classes. Each surfaces to the user as a distinct category;
// none are retried automatically.
var (
	ErrMissingCredentials  = errors.New("llm: reasoning engine credentials are not configured")
	ErrUpstreamAuth        = errors.New("llm: upstream rejected credentials")
	ErrUpstreamRateLimited = errors.New("llm: upstream rate limit exceeded")
	ErrUpstreamUnavailable = errors.New("llm: upstream service unavailable")
	ErrUpstreamNetwork     = errors.New("llm: upstream network failure")
	ErrEmptyResponse       = errors.New("llm: upstream returned an empty response")
	ErrUnparsableResponse  = errors.New("llm: upstream returned unparsable output")
)

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
