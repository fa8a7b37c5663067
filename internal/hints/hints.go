// Package hints defines the canonical signal record extracted from upstream
// payloads, and the normalizer that produces it.
//
// Every field is independently optional: nil means the signal is unknown,
// which the scoring rules treat differently from a known-bad value.
package hints

// Hints is the normalized signal set for one token evaluation. It is created
// fresh per request and owned exclusively by the scoring call.
type Hints struct {
	MintAuthorityActive *bool    `json:"mintAuthorityActive,omitempty"`
	Top10HoldersPct     *float64 `json:"top10HoldersPct,omitempty"`
	FreezeNotRenounced  *bool    `json:"freezeNotRenounced,omitempty"`
	TokenAgeDays        *int     `json:"tokenAgeDays,omitempty"`
	LiquidityLocked     *bool    `json:"liquidityLocked,omitempty"`
	CreatorReputation   *float64 `json:"creatorReputation,omitempty"`
	SocialsOk           *bool    `json:"socialsOk,omitempty"`
	Verified            *bool    `json:"verified,omitempty"`
	LiquidityUsd        *float64 `json:"liquidityUsd,omitempty"`
}

// Bool returns a pointer to b. Convenience for tests and literals.
func Bool(b bool) *bool { return &b }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to i.
func Int(i int) *int { return &i }
