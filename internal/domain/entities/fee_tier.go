package entities

import (
	"fmt"
	"math/big"
)

// FeeTier is a pool fee expressed in millionths of the input amount
// (hundredths of a bip): 3000 means 0.30%. The zero value means "not set".
//
// v1 and v2 charge a fixed 0.30% baked into the pool contracts. v3 deploys
// a separate pool per tier, so there the tier is part of pool identity.
type FeeTier uint32

const (
	FeeTier100   FeeTier = 100   // 0.01%
	FeeTier500   FeeTier = 500   // 0.05%
	FeeTier3000  FeeTier = 3000  // 0.30%
	FeeTier10000 FeeTier = 10000 // 1.00%
)

// FeeTiers lists every tier deployed by the v3 factory, in ascending order.
var FeeTiers = []FeeTier{FeeTier100, FeeTier500, FeeTier3000, FeeTier10000}

const feeDenominator = 1_000_000

func (f FeeTier) valid() bool {
	switch f {
	case FeeTier100, FeeTier500, FeeTier3000, FeeTier10000:
		return true
	default:
		return false
	}
}

func (f FeeTier) String() string {
	return fmt.Sprintf("%g%%", float64(f)/10_000)
}

// Multiplier returns the fraction of the input that reaches the pool after
// the fee, as an integer ratio. For the 0.30% tier this is 997000/1000000,
// the classic 997/1000 scaled by a common factor.
func (f FeeTier) Multiplier() (num, den *big.Int) {
	return big.NewInt(feeDenominator - int64(f)), big.NewInt(feeDenominator)
}

// defaultFeeTier returns the tier assumed when the caller passes none.
// Only v1 and v2 have one; their pools always charge 0.30%.
func defaultFeeTier(version Version) FeeTier {
	switch version {
	case V1, V2:
		return FeeTier3000
	default:
		return 0
	}
}

// ResolveFeeTier normalizes the caller-supplied tier for a version. A zero
// tier means the caller passed nothing.
//
//   - v3 with no tier fails: there is no default pool to pick.
//   - v1/v2 with no tier resolve to the fixed 0.30%.
//   - v1/v2 reject any explicit tier other than 0.30%, even ones the v3
//     factory deploys.
//   - values outside the deployed set are rejected everywhere.
//
// Every public operation that prices or executes a swap resolves its tier
// through here before touching the chain.
func ResolveFeeTier(version Version, tier FeeTier) (FeeTier, error) {
	if tier == 0 {
		if version == V3 {
			return 0, ErrExplicitFeeTierRequired
		}
		return defaultFeeTier(version), nil
	}
	if !tier.valid() {
		return 0, fmt.Errorf("fee %d is not a deployed tier: %w", uint32(tier), ErrInvalidFeeTier)
	}
	if version != V3 && tier != defaultFeeTier(version) {
		return 0, fmt.Errorf("%s pools only charge %s, got %s: %w", version, defaultFeeTier(version), tier, ErrInvalidFeeTier)
	}
	return tier, nil
}
