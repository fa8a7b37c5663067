package hints

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mintlabs/mintguard/internal/upstream"
)

// Each canonical hint is described by an ordered list of candidate JSON
// paths. Providers shape their payloads differently, so we probe every
// successful outcome (in source order, primary first) path by path; the
// first present, non-null value wins. Path segments are map keys, or array
// indices when numeric (e.g. "pairs.0.liquidity.usd").
var (
	mintAuthorityPaths = []string{
		"token.mintAuthorityActive",
		"mintAuthorityActive",
		"authorities.mintActive",
		"onChainAccountInfo.mintAuthorityActive",
	}
	top10HoldersPaths = []string{
		"holders.top10.pct",
		"ownership.top10Pct",
		"distribution.top10Pct",
		"topHolders.pct",
	}
	freezePaths = []string{
		"token.freezeNotRenounced",
		"freezeNotRenounced",
		"authorities.freezeActive",
	}
	ageDaysPaths = []string{
		"tokenAgeDays",
		"token.ageDays",
		"ageDays",
	}
	createdAtPaths = []string{
		"createdAt",
		"token.createdAt",
		"mint.createdAt",
		"pairs.0.pairCreatedAt",
	}
	liquidityLockedPaths = []string{
		"liquidityLocked",
		"liquidity.locked",
		"markets.0.lp.locked",
	}
	creatorReputationPaths = []string{
		"creatorReputation",
		"creator.reputation",
		"creator.score",
	}
	socialsPaths = []string{
		"socialsOk",
		"socials.ok",
		"extensions.hasSocials",
	}
	verifiedPaths = []string{
		"verified",
		"token.verified",
		"verification.verified",
	}
	liquidityUsdPaths = []string{
		"liquidityUsd",
		"liquidity.usd",
		"pairs.0.liquidity.usd",
		"data.liquidity",
	}
)

const msPerDay = 86400000

// Normalizer extracts canonical hints from aggregated upstream outcomes.
type Normalizer struct {
	now func() time.Time
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithNow replaces the clock used for token-age derivation (tests).
func WithNow(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) { n.now = now }
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize merges every successful outcome into one Hints record. Fields
// with no matching value in any payload are left absent, never defaulted.
func (n *Normalizer) Normalize(result upstream.Result) Hints {
	payloads := make([]map[string]any, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		if o.Status == upstream.StatusOK && o.Payload != nil {
			payloads = append(payloads, o.Payload)
		}
	}

	var h Hints
	h.MintAuthorityActive = probeBool(payloads, mintAuthorityPaths)
	h.Top10HoldersPct = probePct(payloads, top10HoldersPaths)
	h.FreezeNotRenounced = probeBool(payloads, freezePaths)
	h.LiquidityLocked = probeBool(payloads, liquidityLockedPaths)
	h.CreatorReputation = probePct(payloads, creatorReputationPaths)
	h.SocialsOk = probeBool(payloads, socialsPaths)
	h.Verified = probeBool(payloads, verifiedPaths)
	h.LiquidityUsd = probeFloat(payloads, liquidityUsdPaths)
	h.TokenAgeDays = n.tokenAge(payloads)

	return h
}

// tokenAge prefers an explicit day count; otherwise it derives one from a
// creation timestamp: max(0, floor((now-createdAt)/86400000)).
func (n *Normalizer) tokenAge(payloads []map[string]any) *int {
	if v, ok := probe(payloads, ageDaysPaths); ok {
		if f, ok := toFloat(v); ok {
			days := int(math.Floor(f))
			if days < 0 {
				days = 0
			}
			return &days
		}
		return nil
	}

	v, ok := probe(payloads, createdAtPaths)
	if !ok {
		return nil
	}
	createdMs, ok := toEpochMillis(v)
	if !ok {
		return nil
	}

	elapsed := n.now().UnixMilli() - createdMs
	days := int(elapsed / msPerDay)
	if days < 0 {
		days = 0
	}
	return &days
}

// probe returns the first present, non-null value across all payloads,
// probing paths in order and payloads in source order within each path.
func probe(payloads []map[string]any, paths []string) (any, bool) {
	for _, path := range paths {
		for _, payload := range payloads {
			if v, ok := resolve(payload, path); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// resolve walks one dot-separated path through nested maps and arrays.
func resolve(payload map[string]any, path string) (any, bool) {
	var cur any = payload
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// probeBool accepts only literal booleans; anything else leaves the field absent.
func probeBool(payloads []map[string]any, paths []string) *bool {
	v, ok := probe(payloads, paths)
	if !ok {
		return nil
	}
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}

func probeFloat(payloads []map[string]any, paths []string) *float64 {
	v, ok := probe(payloads, paths)
	if !ok {
		return nil
	}
	if f, ok := toFloat(v); ok {
		return &f
	}
	return nil
}

// probePct coerces to a number and clamps to [0, 100].
func probePct(payloads []map[string]any, paths []string) *float64 {
	f := probeFloat(payloads, paths)
	if f == nil {
		return nil
	}
	clamped := math.Min(100, math.Max(0, *f))
	return &clamped
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toEpochMillis interprets a creation timestamp as epoch milliseconds.
// Numeric values below 1e12 are treated as epoch seconds; strings are
// parsed as RFC 3339.
func toEpochMillis(v any) (int64, bool) {
	switch ts := v.(type) {
	case float64:
		if ts <= 0 {
			return 0, false
		}
		if ts < 1e12 {
			return int64(ts) * 1000, true
		}
		return int64(ts), true
	case string:
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return 0, false
		}
		return t.UnixMilli(), true
	default:
		return 0, false
	}
}
