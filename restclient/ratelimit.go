package restclient

import (
	"net/http"
	"time"
)

// RateLimitBackoff is a fixed window, response headers are not consulted.
const RateLimitBackoff = 61 * time.Second

// Classify turns 429 and 503 responses into a *RateLimitedError and closes
// their body. Every other response is returned untouched, including non-2xx.
func Classify(service string, resp *http.Response, now time.Time) (*http.Response, error) {
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		resp.Body.Close()
		return nil, &RateLimitedError{
			Service:    service,
			StatusCode: resp.StatusCode,
			RetryAfter: now.Add(RateLimitBackoff),
		}
	default:
		return resp, nil
	}
}
