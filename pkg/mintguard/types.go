// Package mintguard is the Go client SDK for the MintGuard gateway API.
package mintguard

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Factor is one scoring rule that fired for a token.
type Factor struct {
	Key    string `json:"key"`
	Score  int    `json:"score"`
	Detail string `json:"detail"`
}

// Risk carries the decision band, badge, and contributing factors.
type Risk struct {
	Level   string   `json:"level"`
	Badge   Badge    `json:"badge"`
	Factors []Factor `json:"factors"`
}

// Badge is the display label and color for a decision band.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// UpstreamStatus is the outcome of one provider call.
type UpstreamStatus struct {
	Status string `json:"status"`
}

// ScanResponse is the gateway's verdict for one mint.
type ScanResponse struct {
	Score     int                       `json:"score"`
	Decision  string                    `json:"decision"`
	Reason    string                    `json:"reason"`
	Risk      Risk                      `json:"risk"`
	Upstreams map[string]UpstreamStatus `json:"upstreams"`
	Degraded  bool                      `json:"degraded"`
}

// Record is one audit entry from the scan history.
type Record struct {
	ID        string    `json:"id"`
	Mint      string    `json:"mint"`
	Score     int       `json:"score"`
	Decision  string    `json:"decision"`
	Degraded  bool      `json:"degraded"`
	CreatedAt time.Time `json:"createdAt"`
}

// Error represents a gateway error response.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// RateLimit describes the limiter state parsed from response headers.
type RateLimit struct {
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration // zero unless the request was rejected
}

// ParseRateLimit extracts the limiter state from a gateway response.
// Absent headers leave zero values.
func ParseRateLimit(resp *http.Response) RateLimit {
	var rl RateLimit
	if v, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit")); err == nil {
		rl.Limit = v
	}
	if v, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining")); err == nil {
		rl.Remaining = v
	}
	if v, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		rl.Reset = time.Unix(v, 0)
	}
	if v, err := strconv.ParseInt(resp.Header.Get("Retry-After"), 10, 64); err == nil {
		rl.RetryAfter = time.Duration(v) * time.Second
	}
	return rl
}

// IsRateLimited checks if an HTTP response is a 429 Too Many Requests.
func IsRateLimited(resp *http.Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests
}
