package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintlabs/mintguard/internal/fetch"
	"github.com/mintlabs/mintguard/internal/realtime"
	"github.com/mintlabs/mintguard/internal/scoring"
	"github.com/mintlabs/mintguard/internal/upstream"
)

const testMint = "So11111111111111111111111111111111111111112"

type stubClient struct {
	source upstream.Source
	body   string
	err    error
}

func (s *stubClient) Source() upstream.Source { return s.source }

func (s *stubClient) Fetch(ctx context.Context, mint string) (*fetch.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &fetch.Response{Status: 200, Body: []byte(s.body)}, nil
}

type captureFeed struct {
	events []*realtime.ScanEvent
}

func (c *captureFeed) BroadcastScan(ev *realtime.ScanEvent) {
	c.events = append(c.events, ev)
}

func newTestService(store Store, feed Broadcaster, clients ...upstream.Client) *Service {
	agg := upstream.NewAggregator(clients, upstream.WithSourceTimeout(time.Second))
	opts := []ServiceOption{}
	if feed != nil {
		opts = append(opts, WithFeed(feed))
	}
	return NewService(agg, store, opts...)
}

func TestEvaluate_InvalidMint(t *testing.T) {
	svc := newTestService(NewMemoryStore(), nil)

	_, err := svc.Evaluate(context.Background(), "not-a-mint")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMint))
}

func TestEvaluate_FullPipeline(t *testing.T) {
	store := NewMemoryStore()
	feed := &captureFeed{}
	svc := newTestService(store, feed,
		&stubClient{source: upstream.SourceRugcheck, body: `{
			"mintAuthorityActive": true,
			"holders": {"top10": {"pct": 85}},
			"liquidityLocked": false
		}`},
		&stubClient{source: upstream.SourceBirdeye, body: `{"liquidity": {"usd": 1000}}`},
		&stubClient{source: upstream.SourceDexscreener, body: `{}`},
		&stubClient{source: upstream.SourceHelius, body: `{}`},
	)

	resp, err := svc.Evaluate(context.Background(), testMint)
	require.NoError(t, err)

	// 25 (mint authority) + 25 (concentration) + 15 (unlocked) = 65.
	assert.Equal(t, 65, resp.Score)
	assert.Equal(t, scoring.LevelWarn, resp.Decision)
	assert.Equal(t, resp.Decision, resp.Risk.Level)
	assert.NotEmpty(t, resp.Reason)
	assert.Len(t, resp.Risk.Factors, 3)
	assert.False(t, resp.Degraded)

	require.Len(t, resp.Upstreams, 4)
	for _, name := range []string{"rugcheck", "birdeye", "dexscreener", "helius"} {
		assert.Equal(t, upstream.StatusOK, resp.Upstreams[name].Status, name)
	}

	// Audit record written.
	records, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, testMint, records[0].Mint)
	assert.Equal(t, 65, records[0].Score)

	// Feed notified.
	require.Len(t, feed.events, 1)
	assert.Equal(t, testMint, feed.events[0].Mint)
	assert.Equal(t, "warn", feed.events[0].Decision)
}

func TestEvaluate_DegradedStillScores(t *testing.T) {
	svc := newTestService(NewMemoryStore(), nil,
		&stubClient{source: upstream.SourceRugcheck, body: `{"verified": true}`},
		&stubClient{source: upstream.SourceBirdeye, err: errors.New("connection refused")},
		&stubClient{source: upstream.SourceDexscreener, err: context.DeadlineExceeded},
		&stubClient{source: upstream.SourceHelius, body: `{}`},
	)

	resp, err := svc.Evaluate(context.Background(), testMint)
	require.NoError(t, err, "upstream failures must not fail the scan")

	assert.True(t, resp.Degraded)
	assert.Equal(t, upstream.StatusServerError, resp.Upstreams["birdeye"].Status)
	assert.Equal(t, upstream.StatusTimeout, resp.Upstreams["dexscreener"].Status)
	// liquidity_unknown (+5) minus verified discount (5) = 0.
	assert.Equal(t, 0, resp.Score)
	assert.Equal(t, scoring.LevelSafe, resp.Decision)
}

type failingAuditStore struct{}

func (failingAuditStore) Record(ctx context.Context, rec *Record) error {
	return errors.New("insert failed")
}
func (failingAuditStore) List(ctx context.Context, limit int) ([]*Record, error) {
	return nil, nil
}
func (failingAuditStore) ListByMint(ctx context.Context, mint string, limit int) ([]*Record, error) {
	return nil, nil
}

func TestEvaluate_AuditFailureIsNonFatal(t *testing.T) {
	svc := newTestService(failingAuditStore{}, nil,
		&stubClient{source: upstream.SourceRugcheck, body: `{}`},
	)

	resp, err := svc.Evaluate(context.Background(), testMint)
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestHistory_FiltersByMint(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil)

	other := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	for i, mint := range []string{testMint, other, testMint} {
		require.NoError(t, store.Record(context.Background(), &Record{
			ID:        newID(),
			Mint:      mint,
			Score:     i * 10,
			Decision:  scoring.LevelSafe,
			CreatedAt: time.Now(),
		}))
	}

	all, err := svc.History(context.Background(), "", 50)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := svc.History(context.Background(), testMint, 50)
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	_, err = svc.History(context.Background(), "bogus!", 50)
	assert.True(t, errors.Is(err, ErrInvalidMint))
}

func TestMemoryStore_NewestFirstAndLimit(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(context.Background(), &Record{
			ID:    newID(),
			Mint:  testMint,
			Score: i,
		}))
	}

	got, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Score)
	assert.Equal(t, 3, got[1].Score)
}
