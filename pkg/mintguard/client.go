package mintguard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client wraps http.Client with automatic 429 rate-limit handling
type Client struct {
	httpClient *http.Client
	baseURL    string

	// Configuration
	MaxRetries int           // Max rate-limit retries (default: 1)
	AutoWait   bool          // Automatically wait out 429s (default: true)
	MaxWait    time.Duration // Longest Retry-After to honor (default: 10s)

	// Hooks
	OnRateLimited func(rl RateLimit) // Called before each rate-limit wait
}

// NewClient creates a new MintGuard API client
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:    baseURL,
		MaxRetries: 1,
		AutoWait:   true,
		MaxWait:    10 * time.Second,
	}
}

// Scan evaluates one mint and returns the gateway's verdict.
func (c *Client) Scan(ctx context.Context, mint string) (*ScanResponse, error) {
	body, err := json.Marshal(map[string]string{"mint": mint})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out ScanResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/scan", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists recent scans, optionally filtered by mint.
func (c *Client) History(ctx context.Context, mint string, limit int) ([]Record, error) {
	q := url.Values{}
	if mint != "" {
		q.Set("mint", mint)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/scans"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Scans []Record `json:"scans"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Scans, nil
}

// doJSON performs a request with automatic 429 handling and decodes the
// response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	for attempt := 0; ; attempt++ {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if IsRateLimited(resp) && c.AutoWait && attempt < c.MaxRetries {
			rl := ParseRateLimit(resp)
			_ = resp.Body.Close()

			wait := rl.RetryAfter
			if wait <= 0 {
				wait = time.Second
			}
			if wait > c.MaxWait {
				return &Error{
					Status:  http.StatusTooManyRequests,
					Code:    "rate_limit_exceeded",
					Message: fmt.Sprintf("retry-after %s exceeds max wait %s", wait, c.MaxWait),
				}
			}

			if c.OnRateLimited != nil {
				c.OnRateLimited(rl)
			}

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return decodeResponse(resp, out)
	}
}

func decodeResponse(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "http_error"
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
