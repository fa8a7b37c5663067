package upstream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mintlabs/mintguard/internal/metrics"
	"github.com/mintlabs/mintguard/internal/traces"
)

// DefaultSourceTimeout bounds each provider call inside the fan-out.
const DefaultSourceTimeout = 4 * time.Second

// Aggregator fans out to every provider concurrently and joins all outcomes.
// Aggregate never returns an error: failures become per-source statuses.
type Aggregator struct {
	clients []Client
	timeout time.Duration
	logger  *slog.Logger

	// primaryAffectsDegraded controls whether a failed primary source flips
	// the degraded flag. Off by default: the primary is supplementary signal
	// and the scan proceeds without it.
	primaryAffectsDegraded bool
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithSourceTimeout sets the per-source deadline.
func WithSourceTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.timeout = d }
}

// WithPrimaryAffectsDegraded makes a primary failure count toward degraded.
func WithPrimaryAffectsDegraded(v bool) AggregatorOption {
	return func(a *Aggregator) { a.primaryAffectsDegraded = v }
}

// WithLogger sets the aggregator logger.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = logger }
}

// NewAggregator creates an aggregator over the given clients. Client order is
// preserved in results; by convention the primary client comes first.
func NewAggregator(clients []Client, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		clients: clients,
		timeout: DefaultSourceTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate queries every provider concurrently for the given mint. Each call
// is bounded by the per-source timeout, so total wall-clock time is the
// maximum of the source timeouts, not their sum. All goroutines settle before
// Aggregate returns; no outcome is dropped.
func (a *Aggregator) Aggregate(ctx context.Context, mint string) Result {
	ctx, span := traces.StartSpan(ctx, "upstream.Aggregate", traces.Mint(mint))
	defer span.End()

	outcomes := make([]Outcome, len(a.clients))

	var wg sync.WaitGroup
	for i, client := range a.clients {
		wg.Add(1)
		go func(slot int, c Client) {
			defer wg.Done()
			outcomes[slot] = a.query(ctx, c, mint)
		}(i, client)
	}
	wg.Wait()

	degraded := false
	for _, o := range outcomes {
		if o.Status == StatusOK {
			continue
		}
		if o.Source == SourceRugcheck && !a.primaryAffectsDegraded {
			continue
		}
		degraded = true
	}

	span.SetAttributes(attribute.Bool("scan.degraded", degraded))
	return Result{Outcomes: outcomes, Degraded: degraded}
}

// query runs one provider call under its own deadline and classifies the
// result. It owns its slot in the outcome slice, so no locking is needed.
func (a *Aggregator) query(ctx context.Context, c Client, mint string) Outcome {
	srcCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	srcCtx, span := traces.StartSpan(srcCtx, "upstream.fetch",
		attribute.String("upstream.source", string(c.Source())))
	defer span.End()

	start := time.Now()
	resp, err := c.Fetch(srcCtx, mint)
	status, payload := classify(resp, err)

	metrics.UpstreamRequestsTotal.WithLabelValues(string(c.Source()), string(status)).Inc()
	metrics.UpstreamRequestDuration.WithLabelValues(string(c.Source())).Observe(time.Since(start).Seconds())

	if status != StatusOK {
		a.logger.Warn("upstream call failed",
			"source", c.Source(),
			"status", status,
			"elapsed", time.Since(start),
			"error", err,
		)
	}

	return Outcome{Source: c.Source(), Status: status, Payload: payload}
}
