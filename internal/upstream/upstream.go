// Package upstream queries the external token-data providers and aggregates
// their outcomes. Each provider is independent: one provider failing, timing
// out, or rejecting our credentials never affects the others, and the
// aggregate result always carries a per-source status instead of an error.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mintlabs/mintguard/internal/fetch"
)

// Source identifies one external data provider.
type Source string

const (
	// SourceRugcheck is the primary provider. It is the only source whose
	// calls go through the retry loop.
	SourceRugcheck    Source = "rugcheck"
	SourceBirdeye     Source = "birdeye"
	SourceDexscreener Source = "dexscreener"
	SourceHelius      Source = "helius"
)

// Status classifies how a provider call ended.
type Status string

const (
	StatusOK           Status = "ok"
	StatusDown         Status = "down"
	StatusTimeout      Status = "timeout"
	StatusUnauthorized Status = "unauthorized"
	StatusForbidden    Status = "forbidden"
	StatusRateLimited  Status = "rateLimited"
	StatusServerError  Status = "serverError"
)

// Outcome is the settled result of one provider call within one aggregation.
type Outcome struct {
	Source  Source
	Status  Status
	Payload map[string]any // decoded JSON body; nil unless Status is ok
}

// Result is the settled result of a full fan-out. Outcomes preserve client
// order, primary first.
type Result struct {
	Outcomes []Outcome
	Degraded bool
}

// Outcome returns the outcome for a source, or a zero Outcome if absent.
func (r Result) Outcome(s Source) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Source == s {
			return o, true
		}
	}
	return Outcome{}, false
}

// classify maps a completed fetch (response or error) to an Outcome status
// and, on success, a decoded payload.
func classify(resp *fetch.Response, err error) (Status, map[string]any) {
	if err != nil {
		var se *fetch.StatusError
		switch {
		case errors.As(err, &se) && se.Status == http.StatusTooManyRequests:
			return StatusRateLimited, nil
		case errors.As(err, &se):
			return StatusServerError, nil
		case errors.Is(err, context.DeadlineExceeded):
			return StatusTimeout, nil
		default:
			// Connection refused, DNS failure, and the like: no response.
			return StatusServerError, nil
		}
	}

	switch {
	case resp.Status == http.StatusUnauthorized:
		return StatusUnauthorized, nil
	case resp.Status == http.StatusForbidden:
		return StatusForbidden, nil
	case resp.Status == http.StatusTooManyRequests:
		return StatusRateLimited, nil
	case resp.Status >= 500:
		return StatusServerError, nil
	case resp.OK():
		var payload map[string]any
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			return StatusDown, nil
		}
		return StatusOK, payload
	default:
		return StatusDown, nil
	}
}
