// Package fetch provides a resilient JSON HTTP client with per-attempt
// timeouts and retry on transient upstream failures.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mintlabs/mintguard/internal/retry"
)

// Default configuration values.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxRetries  = 2
	DefaultBackoffBase = 200 * time.Millisecond

	// maxBodySize caps upstream response bodies (4MB).
	maxBodySize = 4 << 20
)

// Response is the outcome of a completed HTTP exchange.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// OK reports whether the response status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// StatusError is returned when retries are exhausted on a retryable HTTP
// status (429 or 5xx). It preserves the final status so callers can classify
// the failure.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d after retries", e.Status)
}

// Client performs JSON GET requests with a hard per-attempt timeout and
// exponential backoff between attempts. A response is retryable iff its
// status is 429 or >= 500, or the attempt failed before any response
// arrived. Other statuses are returned to the caller without retrying.
type Client struct {
	http       *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    retry.Backoff
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxRetries sets the number of retries after the initial attempt.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the backoff schedule used between attempts.
func WithBackoff(b retry.Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithHTTPClient sets a custom http.Client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client with default resilience settings.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{},
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		backoff:    retry.NewBackoff(DefaultBackoffBase),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryable reports whether an HTTP status warrants another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// FetchJSON performs a GET against url with the given headers. It makes up to
// maxRetries+1 attempts, each bounded by the per-attempt timeout. On success
// or on a non-retryable status the Response is returned. When every attempt
// fails, the last error is surfaced: a *StatusError for a retryable HTTP
// status, or the underlying transport/timeout error otherwise.
func (c *Client) FetchJSON(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	var resp *Response

	attemptErr := retry.Do(ctx, c.maxRetries+1, c.backoff, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		res, err := c.http.Do(req)
		if err != nil {
			// Timeout or connection failure before any response.
			return err
		}
		defer func() { _ = res.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
		if err != nil {
			return err
		}

		if retryable(res.StatusCode) {
			return &StatusError{Status: res.StatusCode}
		}

		resp = &Response{Status: res.StatusCode, Body: body, Header: res.Header}
		return nil
	})

	if attemptErr != nil {
		return nil, attemptErr
	}
	return resp, nil
}
