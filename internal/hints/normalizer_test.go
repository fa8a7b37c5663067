package hints

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintlabs/mintguard/internal/upstream"
)

func okOutcome(t *testing.T, source upstream.Source, body string) upstream.Outcome {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return upstream.Outcome{Source: source, Status: upstream.StatusOK, Payload: payload}
}

func TestNormalize_AllAbsentWhenNothingMatches(t *testing.T) {
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceRugcheck, `{"unrelated": {"stuff": 1}}`),
	}}

	h := NewNormalizer().Normalize(result)
	assert.Equal(t, Hints{}, h)
}

func TestNormalize_SkipsFailedOutcomes(t *testing.T) {
	result := upstream.Result{Outcomes: []upstream.Outcome{
		{Source: upstream.SourceRugcheck, Status: upstream.StatusTimeout},
		okOutcome(t, upstream.SourceBirdeye, `{"verified": true}`),
	}}

	h := NewNormalizer().Normalize(result)
	require.NotNil(t, h.Verified)
	assert.True(t, *h.Verified)
}

func TestNormalize_PathFallbackOrder(t *testing.T) {
	// First path (holders.top10.pct) should win over a later candidate
	// (distribution.top10Pct) even when the later one appears in an
	// earlier source.
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceRugcheck, `{"distribution": {"top10Pct": 40}}`),
		okOutcome(t, upstream.SourceBirdeye, `{"holders": {"top10": {"pct": 72.5}}}`),
	}}

	h := NewNormalizer().Normalize(result)
	require.NotNil(t, h.Top10HoldersPct)
	assert.Equal(t, 72.5, *h.Top10HoldersPct)
}

func TestNormalize_SourceOrderWithinPath(t *testing.T) {
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceRugcheck, `{"holders": {"top10": {"pct": 61}}}`),
		okOutcome(t, upstream.SourceBirdeye, `{"holders": {"top10": {"pct": 99}}}`),
	}}

	h := NewNormalizer().Normalize(result)
	require.NotNil(t, h.Top10HoldersPct)
	assert.Equal(t, float64(61), *h.Top10HoldersPct, "primary source wins within the same path")
}

func TestNormalize_PercentClamped(t *testing.T) {
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceRugcheck, `{"holders": {"top10": {"pct": 140}}, "creator": {"reputation": -3}}`),
	}}

	h := NewNormalizer().Normalize(result)
	require.NotNil(t, h.Top10HoldersPct)
	assert.Equal(t, float64(100), *h.Top10HoldersPct)
	require.NotNil(t, h.CreatorReputation)
	assert.Equal(t, float64(0), *h.CreatorReputation)
}

func TestNormalize_NumericStringCoerced(t *testing.T) {
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceDexscreener, `{"pairs": [{"liquidity": {"usd": "15300.25"}}]}`),
	}}

	h := NewNormalizer().Normalize(result)
	require.NotNil(t, h.LiquidityUsd)
	assert.Equal(t, 15300.25, *h.LiquidityUsd)
}

func TestNormalize_BooleanRejectsNonLiterals(t *testing.T) {
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceRugcheck, `{"verified": "yes", "liquidityLocked": 1}`),
	}}

	h := NewNormalizer().Normalize(result)
	assert.Nil(t, h.Verified, "string is not a literal boolean")
	assert.Nil(t, h.LiquidityLocked, "number is not a literal boolean")
}

func TestNormalize_NullIsAbsent(t *testing.T) {
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceRugcheck, `{"verified": null}`),
		okOutcome(t, upstream.SourceHelius, `{"verified": false}`),
	}}

	h := NewNormalizer().Normalize(result)
	require.NotNil(t, h.Verified, "null must fall through to the next payload")
	assert.False(t, *h.Verified)
}

func TestNormalize_AgeFromExplicitDays(t *testing.T) {
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceRugcheck, `{"tokenAgeDays": 6.9}`),
	}}

	h := NewNormalizer().Normalize(result)
	require.NotNil(t, h.TokenAgeDays)
	assert.Equal(t, 6, *h.TokenAgeDays, "day counts floor to integers")
}

func TestNormalize_AgeDerivedFromCreatedAtMillis(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	createdAt := now.Add(-49 * time.Hour).UnixMilli() // 2 days and 1 hour ago

	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceDexscreener,
			`{"pairs": [{"pairCreatedAt": `+jsonNumber(createdAt)+`}]}`),
	}}

	n := NewNormalizer(WithNow(func() time.Time { return now }))
	h := n.Normalize(result)
	require.NotNil(t, h.TokenAgeDays)
	assert.Equal(t, 2, *h.TokenAgeDays)
}

func TestNormalize_AgeDerivedFromRFC3339(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceHelius, `{"token": {"createdAt": "2025-06-01T00:00:00Z"}}`),
	}}

	n := NewNormalizer(WithNow(func() time.Time { return now }))
	h := n.Normalize(result)
	require.NotNil(t, h.TokenAgeDays)
	assert.Equal(t, 9, *h.TokenAgeDays)
}

func TestNormalize_FutureCreatedAtClampsToZero(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	result := upstream.Result{Outcomes: []upstream.Outcome{
		okOutcome(t, upstream.SourceHelius, `{"token": {"createdAt": "2025-07-01T00:00:00Z"}}`),
	}}

	n := NewNormalizer(WithNow(func() time.Time { return now }))
	h := n.Normalize(result)
	require.NotNil(t, h.TokenAgeDays)
	assert.Equal(t, 0, *h.TokenAgeDays)
}

func TestResolve_ArrayIndexing(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"markets": [{"lp": {"locked": true}}]}`), &payload))

	v, ok := resolve(payload, "markets.0.lp.locked")
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = resolve(payload, "markets.5.lp.locked")
	assert.False(t, ok)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
