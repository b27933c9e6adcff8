package restclient

import (
	"fmt"
	"time"
)

// RateLimitedError means the service asked us to back off. Callers should not
// retry before RetryAfter.
type RateLimitedError struct {
	Service    string
	StatusCode int
	RetryAfter time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s rate limited (status %d), retry after %s",
		e.Service, e.StatusCode, e.RetryAfter.UTC().Format(time.RFC3339))
}

// TransportError wraps connection, TLS and timeout failures.
type TransportError struct {
	Service string
	Method  string
	URL     string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Service, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError means a response body did not have the expected shape.
type DecodeError struct {
	Service string
	URL     string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decoding response from %s: %v", e.Service, e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusError is returned by the JSON helpers for non-2xx responses that were
// not classified as rate limiting.
type StatusError struct {
	Service    string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status code: %d", e.Service, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status code: %d: %s", e.Service, e.URL, e.StatusCode, e.Body)
}
