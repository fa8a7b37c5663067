package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for connecting to the MintGuard gateway.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// GatewayClient is a pure HTTP client for the MintGuard gateway API.
type GatewayClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewGatewayClient creates a new client for the MintGuard gateway.
func NewGatewayClient(cfg Config) *GatewayClient {
	return &GatewayClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the gateway.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the gateway and returns the response body.
func (c *GatewayClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%s (%d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return respBody, nil
}

// ScanToken evaluates one mint via POST /api/v1/scan.
func (c *GatewayClient) ScanToken(ctx context.Context, mint string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/scan", nil, map[string]string{"mint": mint})
}

// GetScanHistory lists recent scans via GET /api/v1/scans.
func (c *GatewayClient) GetScanHistory(ctx context.Context, mint string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if mint != "" {
		q.Set("mint", mint)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/api/v1/scans", q, nil)
}
