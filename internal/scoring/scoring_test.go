package scoring

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintlabs/mintguard/internal/hints"
)

func TestScore_WorstCaseClampsTo100(t *testing.T) {
	h := hints.Hints{
		MintAuthorityActive: hints.Bool(true),
		Top10HoldersPct:     hints.Float(85),
		FreezeNotRenounced:  hints.Bool(true),
		TokenAgeDays:        hints.Int(1),
		LiquidityLocked:     hints.Bool(false),
		CreatorReputation:   hints.Float(10),
		SocialsOk:           hints.Bool(false),
		Verified:            hints.Bool(false),
	}

	// Raw sum: 25+25+15+10+15+10+5 = 105, clamped to 100.
	result := Score(h)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, LevelBlock, result.Level)
	assert.Len(t, result.Factors, 7)
}

func TestScore_EmptyHints(t *testing.T) {
	result := Score(hints.Hints{})

	// Only the unknown-liquidity rule fires on a fully absent record.
	assert.Equal(t, 5, result.Score)
	assert.Equal(t, LevelSafe, result.Level)
	require.Len(t, result.Factors, 1)
	assert.Equal(t, "liquidity_unknown", result.Factors[0].Key)
}

func TestScore_VerifiedDiscountCapped(t *testing.T) {
	h := hints.Hints{
		Verified:            hints.Bool(true),
		MintAuthorityActive: hints.Bool(true),
		LiquidityLocked:     hints.Bool(true), // suppress the unknown-liquidity rule
	}

	// Pre-discount 25, discount min(10, 25) = 10, final 15.
	result := Score(h)
	assert.Equal(t, 15, result.Score)
	assert.Equal(t, LevelSafe, result.Level)

	var discount *Factor
	for i := range result.Factors {
		if result.Factors[i].Key == "bags_verified" {
			discount = &result.Factors[i]
		}
	}
	require.NotNil(t, discount)
	assert.Equal(t, -10, discount.Score)
}

func TestScore_VerifiedDiscountNeverGoesNegative(t *testing.T) {
	h := hints.Hints{
		Verified:        hints.Bool(true),
		LiquidityLocked: hints.Bool(true),
	}

	// Pre-discount 0, so the discount is capped at 0.
	result := Score(h)
	assert.Equal(t, 0, result.Score)

	for _, f := range result.Factors {
		if f.Key == "bags_verified" {
			assert.Equal(t, 0, f.Score)
		}
	}
}

func TestScore_VerifiedDiscountSmallerThanCap(t *testing.T) {
	h := hints.Hints{
		Verified:        hints.Bool(true),
		SocialsOk:       hints.Bool(false), // +5
		LiquidityLocked: hints.Bool(true),
	}

	result := Score(h)
	assert.Equal(t, 0, result.Score, "discount is bounded by the running total")
}

func TestScore_Deterministic(t *testing.T) {
	h := hints.Hints{
		MintAuthorityActive: hints.Bool(true),
		Top10HoldersPct:     hints.Float(65),
		TokenAgeDays:        hints.Int(5),
		Verified:            hints.Bool(true),
	}

	first := Score(h)
	second := Score(h)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("scoring is not deterministic: %+v vs %+v", first, second)
	}
}

func TestScore_HolderConcentrationBands(t *testing.T) {
	tests := []struct {
		pct   float64
		delta int
	}{
		{59.9, 0},
		{60, 15},
		{79.9, 15},
		{80, 25},
		{100, 25},
	}
	for _, tt := range tests {
		h := hints.Hints{
			Top10HoldersPct: hints.Float(tt.pct),
			LiquidityLocked: hints.Bool(true),
		}
		result := Score(h)
		assert.Equal(t, tt.delta, result.Score, "pct=%v", tt.pct)
	}
}

func TestScore_TokenAgeBands(t *testing.T) {
	tests := []struct {
		age   int
		delta int
	}{
		{0, 10},
		{2, 10},
		{3, 5},
		{13, 5},
		{14, 0},
	}
	for _, tt := range tests {
		h := hints.Hints{
			TokenAgeDays:    hints.Int(tt.age),
			LiquidityLocked: hints.Bool(true),
		}
		result := Score(h)
		assert.Equal(t, tt.delta, result.Score, "age=%d", tt.age)
	}
}

func TestScore_CreatorReputationBands(t *testing.T) {
	tests := []struct {
		rep   float64
		delta int
	}{
		{0, 10},
		{20, 10},
		{20.5, 5},
		{49.9, 5},
		{50, 0},
	}
	for _, tt := range tests {
		h := hints.Hints{
			CreatorReputation: hints.Float(tt.rep),
			LiquidityLocked:   hints.Bool(true),
		}
		result := Score(h)
		assert.Equal(t, tt.delta, result.Score, "rep=%v", tt.rep)
	}
}

func TestScore_LiquidityRules(t *testing.T) {
	unlocked := Score(hints.Hints{LiquidityLocked: hints.Bool(false)})
	assert.Equal(t, 15, unlocked.Score)
	assert.Equal(t, "liquidity_unlocked", unlocked.Factors[0].Key)

	locked := Score(hints.Hints{LiquidityLocked: hints.Bool(true)})
	assert.Equal(t, 0, locked.Score)
	assert.Empty(t, locked.Factors)
}

func TestLevelFor_ContiguousAndExhaustive(t *testing.T) {
	for score := 0; score <= 100; score++ {
		level := levelFor(score)
		switch {
		case score >= 80:
			assert.Equal(t, LevelBlock, level, "score=%d", score)
		case score >= 50:
			assert.Equal(t, LevelWarn, level, "score=%d", score)
		default:
			assert.Equal(t, LevelSafe, level, "score=%d", score)
		}
	}
}

func TestScore_RangeInvariant(t *testing.T) {
	// Sweep a grid of hint combinations; every score must land in [0, 100].
	bools := []*bool{nil, hints.Bool(true), hints.Bool(false)}
	pcts := []*float64{nil, hints.Float(0), hints.Float(65), hints.Float(100)}
	ages := []*int{nil, hints.Int(0), hints.Int(5), hints.Int(100)}

	for _, ma := range bools {
		for _, pct := range pcts {
			for _, age := range ages {
				for _, verified := range bools {
					h := hints.Hints{
						MintAuthorityActive: ma,
						Top10HoldersPct:     pct,
						TokenAgeDays:        age,
						Verified:            verified,
						FreezeNotRenounced:  hints.Bool(true),
						SocialsOk:           hints.Bool(false),
						CreatorReputation:   hints.Float(10),
					}
					result := Score(h)
					if result.Score < 0 || result.Score > 100 {
						t.Fatalf("score %d out of range for %+v", result.Score, h)
					}
				}
			}
		}
	}
}

func TestBadges_FixedPerLevel(t *testing.T) {
	block := Score(hints.Hints{
		MintAuthorityActive: hints.Bool(true),
		Top10HoldersPct:     hints.Float(90),
		FreezeNotRenounced:  hints.Bool(true),
		LiquidityLocked:     hints.Bool(false),
	})
	require.Equal(t, LevelBlock, block.Level)
	assert.Equal(t, "High Risk", block.Badge.Text)
	assert.NotEmpty(t, block.Badge.Color)

	safe := Score(hints.Hints{LiquidityLocked: hints.Bool(true)})
	require.Equal(t, LevelSafe, safe.Level)
	assert.Equal(t, "Low Risk", safe.Badge.Text)
}

func TestSummary(t *testing.T) {
	clean := Score(hints.Hints{LiquidityLocked: hints.Bool(true)})
	assert.Equal(t, "no risk signals detected", clean.Summary())

	risky := Score(hints.Hints{MintAuthorityActive: hints.Bool(true), LiquidityLocked: hints.Bool(true)})
	assert.Contains(t, risky.Summary(), "mint authority")
}
