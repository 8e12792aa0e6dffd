package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	genai "google.golang.org/genai"
)

// Classify maps a raw upstream failure onto one of the taxonomy sentinels so
// callers can branch with errors.Is. The original error stays wrapped.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrUpstreamAuth),
		errors.Is(err, ErrUpstreamRateLimited),
		errors.Is(err, ErrUpstreamUnavailable),
		errors.Is(err, ErrUpstreamNetwork),
		errors.Is(err, ErrEmptyResponse),
		errors.Is(err, ErrUnparsableResponse):
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyStatus(apiErrPtr.Code, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUpstreamNetwork, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUpstreamNetwork, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrUpstreamNetwork, err)
	}

	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

func classifyStatus(code int, err error) error {
	switch {
	case code == 401 || code == 403:
		return NewPermanentError(fmt.Errorf("%w: %v", ErrUpstreamAuth, err))
	case code == 429:
		return fmt.Errorf("%w: %v", ErrUpstreamRateLimited, err)
	case code >= 500:
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
}
