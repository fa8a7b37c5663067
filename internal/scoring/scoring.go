// Package scoring implements the deterministic token risk engine.
//
// Score is a pure function over a Hints record: no I/O, no clock, no
// randomness. Rules are additive and independent; the verification discount
// is applied last and can never drive the score negative. The final score is
// clamped to [0, 100] and mapped to a safe/warn/block level through
// contiguous thresholds.
package scoring

import (
	"fmt"
	"strings"

	"github.com/mintlabs/mintguard/internal/hints"
)

// Level classifies a clamped score.
type Level string

const (
	LevelSafe  Level = "safe"
	LevelWarn  Level = "warn"
	LevelBlock Level = "block"
)

// Level thresholds. Every integer in [0, 100] maps to exactly one level.
const (
	BlockThreshold = 80
	WarnThreshold  = 50
)

// MaxVerifiedDiscount caps the score reduction for verified tokens.
const MaxVerifiedDiscount = 10

// Badge is the display pair shown next to a risk level.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

var badges = map[Level]Badge{
	LevelSafe:  {Text: "Low Risk", Color: "#16a34a"},
	LevelWarn:  {Text: "Caution", Color: "#f59e0b"},
	LevelBlock: {Text: "High Risk", Color: "#dc2626"},
}

// Factor is one triggered rule's contribution to the score.
type Factor struct {
	Key    string `json:"key"`
	Score  int    `json:"score"`
	Detail string `json:"detail"`
}

// Result is the engine's verdict for one Hints record.
type Result struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Badge   Badge    `json:"badge"`
	Factors []Factor `json:"factors"`
}

// rule evaluates one signal. A nil return means the rule did not trigger.
type rule func(h hints.Hints) *Factor

// rules is the canonical table, evaluated in order. An absent hint does not
// trigger its rule, except liquidityLocked, where unknown is itself a signal.
var rules = []rule{
	func(h hints.Hints) *Factor {
		if h.MintAuthorityActive != nil && *h.MintAuthorityActive {
			return &Factor{Key: "mint_authority_active", Score: 25,
				Detail: "mint authority is still active; supply can be inflated"}
		}
		return nil
	},
	func(h hints.Hints) *Factor {
		if h.Top10HoldersPct == nil {
			return nil
		}
		pct := *h.Top10HoldersPct
		switch {
		case pct >= 80:
			return &Factor{Key: "holders_concentrated", Score: 25,
				Detail: fmt.Sprintf("top 10 holders own %.0f%% of supply", pct)}
		case pct >= 60:
			return &Factor{Key: "holders_concentrated", Score: 15,
				Detail: fmt.Sprintf("top 10 holders own %.0f%% of supply", pct)}
		}
		return nil
	},
	func(h hints.Hints) *Factor {
		if h.FreezeNotRenounced != nil && *h.FreezeNotRenounced {
			return &Factor{Key: "freeze_not_renounced", Score: 15,
				Detail: "freeze authority has not been renounced"}
		}
		return nil
	},
	func(h hints.Hints) *Factor {
		if h.TokenAgeDays == nil {
			return nil
		}
		age := *h.TokenAgeDays
		switch {
		case age < 3:
			return &Factor{Key: "young_token", Score: 10,
				Detail: fmt.Sprintf("token is %d days old", age)}
		case age < 14:
			return &Factor{Key: "young_token", Score: 5,
				Detail: fmt.Sprintf("token is %d days old", age)}
		}
		return nil
	},
	func(h hints.Hints) *Factor {
		if h.LiquidityLocked == nil {
			return &Factor{Key: "liquidity_unknown", Score: 5,
				Detail: "liquidity lock status could not be determined"}
		}
		if !*h.LiquidityLocked {
			return &Factor{Key: "liquidity_unlocked", Score: 15,
				Detail: "liquidity is not locked"}
		}
		return nil
	},
	func(h hints.Hints) *Factor {
		if h.CreatorReputation == nil {
			return nil
		}
		rep := *h.CreatorReputation
		switch {
		case rep <= 20:
			return &Factor{Key: "creator_low_reputation", Score: 10,
				Detail: fmt.Sprintf("creator reputation is %.0f/100", rep)}
		case rep < 50:
			return &Factor{Key: "creator_mixed_reputation", Score: 5,
				Detail: fmt.Sprintf("creator reputation is %.0f/100", rep)}
		}
		return nil
	},
	func(h hints.Hints) *Factor {
		if h.SocialsOk != nil && !*h.SocialsOk {
			return &Factor{Key: "no_socials", Score: 5,
				Detail: "no active social presence found"}
		}
		return nil
	},
}

// Score evaluates the rule table against h. Identical input always yields
// identical output.
func Score(h hints.Hints) Result {
	var factors []Factor
	total := 0

	for _, r := range rules {
		if f := r(h); f != nil {
			factors = append(factors, *f)
			total += f.Score
		}
	}

	// The verification discount runs after all additive rules so it can be
	// capped at the running total: the score never goes negative.
	if h.Verified != nil && *h.Verified {
		discount := MaxVerifiedDiscount
		if total < discount {
			discount = total
		}
		factors = append(factors, Factor{Key: "bags_verified", Score: -discount,
			Detail: "token creator is verified"})
		total -= discount
	}

	score := clamp(total)

	return Result{
		Score:   score,
		Level:   levelFor(score),
		Badge:   badges[levelFor(score)],
		Factors: factors,
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// levelFor maps a clamped score to its level.
func levelFor(score int) Level {
	switch {
	case score >= BlockThreshold:
		return LevelBlock
	case score >= WarnThreshold:
		return LevelWarn
	default:
		return LevelSafe
	}
}

// Summary renders a short human-readable reason from the triggered factors.
func (r Result) Summary() string {
	if len(r.Factors) == 0 {
		return "no risk signals detected"
	}
	details := make([]string, 0, len(r.Factors))
	for _, f := range r.Factors {
		if f.Score > 0 {
			details = append(details, f.Detail)
		}
	}
	if len(details) == 0 {
		return "no risk signals detected"
	}
	return strings.Join(details, "; ")
}
