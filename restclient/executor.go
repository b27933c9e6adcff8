// Package restclient is the shared plumbing of the REST clients: bearer
// authorization with a cached access token, rate limit classification and
// JSON decoding into typed errors.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angas/eloverblik-exporter/metrics"
	"github.com/mailgun/holster/v4/clock"
	"golang.org/x/time/rate"
)

type Options struct {
	Service string
	BaseURL string
	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client
	// Authorizer is optional, requests are sent without an Authorization header when nil.
	Authorizer Authorizer
	// RequestsPerMinute paces requests on the client side, 0 disables pacing.
	RequestsPerMinute int
}

type Executor struct {
	logger  *slog.Logger
	service string
	baseURL string
	http    *http.Client
	auth    Authorizer
	limiter *rate.Limiter
}

func New(logger *slog.Logger, opts Options) *Executor {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), opts.RequestsPerMinute)
	}

	return &Executor{
		logger:  logger,
		service: opts.Service,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		auth:    opts.Authorizer,
		limiter: limiter,
	}
}

func (e *Executor) Service() string {
	return e.service
}

// NewRequest builds a request for a path relative to the base URL. A non-nil
// body is sent as JSON.
func (e *Executor) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := e.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do authorizes and sends the request. The response is returned as is unless
// it was rate limited, the caller owns its body.
func (e *Executor) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s waiting for request slot: %w", e.service, err)
		}
	}

	if e.auth != nil {
		header, err := e.auth.Authorization(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s authorization: %w", e.service, err)
		}
		req.Header.Set("Authorization", header)
	}

	e.logger.Debug("http request", slog.String("method", req.Method), slog.String("url", req.URL.Redacted()))

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, &TransportError{Service: e.service, Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	metrics.RecordRequest(e.service, resp.StatusCode)

	resp, err = Classify(e.service, resp, clock.Now())
	if err != nil {
		metrics.RateLimitedTotal.WithLabelValues(e.service).Inc()
		e.logger.Warn("request rate limited", slog.String("url", req.URL.Redacted()), slog.Any("error", err))
		return nil, err
	}
	return resp, nil
}

func GetJSON[T any](ctx context.Context, e *Executor, path string, query url.Values) (T, error) {
	var zero T
	req, err := e.NewRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return zero, err
	}
	return doJSON[T](e, req)
}

func PostJSON[T any](ctx context.Context, e *Executor, path string, body any) (T, error) {
	var zero T
	req, err := e.NewRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return zero, err
	}
	return doJSON[T](e, req)
}

func doJSON[T any](e *Executor, req *http.Request) (T, error) {
	var result T

	resp, err := e.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return result, &StatusError{
			Service:    e.service,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, &DecodeError{Service: e.service, URL: req.URL.Redacted(), Err: err}
	}
	return result, nil
}
