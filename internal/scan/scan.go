// Package scan runs the token evaluation pipeline: validate the mint, gather
// upstream signals, normalize them, score them, and assemble the response.
// Upstream failures surface as per-source statuses inside the response;
// Evaluate only errs on invalid input.
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/mintlabs/mintguard/internal/scoring"
	"github.com/mintlabs/mintguard/internal/upstream"
)

// ErrInvalidMint marks a malformed token identifier. Surfaced to clients as
// a 400.
var ErrInvalidMint = errors.New("invalid mint address")

// UpstreamStatus is the per-source slice of the response.
type UpstreamStatus struct {
	Status upstream.Status `json:"status"`
}

// Risk is the detailed breakdown of the verdict.
type Risk struct {
	Level   scoring.Level    `json:"level"`
	Badge   scoring.Badge    `json:"badge"`
	Factors []scoring.Factor `json:"factors"`
}

// Response is the canonical evaluation result returned to clients.
type Response struct {
	Score     int                       `json:"score"`
	Decision  scoring.Level             `json:"decision"`
	Reason    string                    `json:"reason"`
	Risk      Risk                      `json:"risk"`
	Upstreams map[string]UpstreamStatus `json:"upstreams"`
	Degraded  bool                      `json:"degraded"`
}

// Record is one audit-trail entry for a completed evaluation.
type Record struct {
	ID        string        `json:"id"`
	Mint      string        `json:"mint"`
	Score     int           `json:"score"`
	Decision  scoring.Level `json:"decision"`
	Degraded  bool          `json:"degraded"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Store persists scan records for the audit trail.
type Store interface {
	Record(ctx context.Context, rec *Record) error
	List(ctx context.Context, limit int) ([]*Record, error)
	ListByMint(ctx context.Context, mint string, limit int) ([]*Record, error)
}
