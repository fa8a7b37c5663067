package scan

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/mintlabs/mintguard/internal/hints"
	"github.com/mintlabs/mintguard/internal/metrics"
	"github.com/mintlabs/mintguard/internal/realtime"
	"github.com/mintlabs/mintguard/internal/traces"
	"github.com/mintlabs/mintguard/internal/upstream"
	"github.com/mintlabs/mintguard/internal/validation"

	"github.com/mintlabs/mintguard/internal/scoring"
)

// Broadcaster publishes completed scans to live subscribers.
type Broadcaster interface {
	BroadcastScan(event *realtime.ScanEvent)
}

// Service is the evaluation pipeline.
type Service struct {
	aggregator *upstream.Aggregator
	normalizer *hints.Normalizer
	store      Store
	feed       Broadcaster
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFeed attaches a live feed for completed scans.
func WithFeed(feed Broadcaster) ServiceOption {
	return func(s *Service) { s.feed = feed }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates the pipeline over an aggregator and an audit store.
func NewService(aggregator *upstream.Aggregator, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		aggregator: aggregator,
		normalizer: hints.NewNormalizer(),
		store:      store,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate scans one mint. It returns ErrInvalidMint for malformed input;
// upstream trouble never fails the call — the response carries per-source
// statuses and the degraded flag instead.
func (s *Service) Evaluate(ctx context.Context, mint string) (*Response, error) {
	mint = validation.SanitizeMint(mint)
	if !validation.IsValidMint(mint) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMint, mint)
	}

	ctx, span := traces.StartSpan(ctx, "scan.Evaluate", traces.Mint(mint))
	defer span.End()

	start := time.Now()

	result := s.aggregator.Aggregate(ctx, mint)
	h := s.normalizer.Normalize(result)
	verdict := scoring.Score(h)

	upstreams := make(map[string]UpstreamStatus, len(result.Outcomes))
	for _, o := range result.Outcomes {
		upstreams[string(o.Source)] = UpstreamStatus{Status: o.Status}
	}

	resp := &Response{
		Score:    verdict.Score,
		Decision: verdict.Level,
		Reason:   verdict.Summary(),
		Risk: Risk{
			Level:   verdict.Level,
			Badge:   verdict.Badge,
			Factors: verdict.Factors,
		},
		Upstreams: upstreams,
		Degraded:  result.Degraded,
	}

	span.SetAttributes(traces.Score(verdict.Score), traces.Decision(string(verdict.Level)))
	metrics.ScansTotal.WithLabelValues(string(verdict.Level)).Inc()
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	if result.Degraded {
		metrics.ScansDegradedTotal.Inc()
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:        newID(),
		Mint:      mint,
		Score:     verdict.Score,
		Decision:  verdict.Level,
		Degraded:  result.Degraded,
		CreatedAt: now,
	}
	if err := s.store.Record(ctx, rec); err != nil {
		// Audit is best effort: a storage hiccup must not fail the scan.
		s.logger.Warn("failed to record scan", "mint", mint, "error", err)
	}

	if s.feed != nil {
		s.feed.BroadcastScan(&realtime.ScanEvent{
			Mint:      mint,
			Score:     verdict.Score,
			Decision:  string(verdict.Level),
			Degraded:  result.Degraded,
			Timestamp: now,
		})
	}

	s.logger.Info("scan completed",
		"mint", mint,
		"score", verdict.Score,
		"decision", verdict.Level,
		"degraded", result.Degraded,
		"elapsed", time.Since(start),
	)

	return resp, nil
}

// History lists recent scans, optionally filtered by mint.
func (s *Service) History(ctx context.Context, mint string, limit int) ([]*Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if mint != "" {
		mint = validation.SanitizeMint(mint)
		if !validation.IsValidMint(mint) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMint, mint)
		}
		return s.store.ListByMint(ctx, mint, limit)
	}
	return s.store.List(ctx, limit)
}

func newID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return "scan_" + hex.EncodeToString(b[:])
}
