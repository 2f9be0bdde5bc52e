package entities

import "fmt"

// Version identifies the Uniswap protocol generation an engine instance
// targets. An instance is bound to exactly one version at construction and
// never re-targets; comparing versions means running several instances.
type Version uint8

const (
	V1 Version = iota + 1
	V2
	V3
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return fmt.Sprintf("v?(%d)", uint8(v))
	}
}

// MarshalText renders versions as "v1"/"v2"/"v3" in JSON, including when
// used as map keys.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersion accepts "1"/"v1" style inputs from flags and query params.
func ParseVersion(s string) (Version, error) {
	switch s {
	case "1", "v1", "V1":
		return V1, nil
	case "2", "v2", "V2":
		return V2, nil
	case "3", "v3", "V3":
		return V3, nil
	default:
		return 0, fmt.Errorf("unknown protocol version %q", s)
	}
}

// SupportsTokenPairPricing reports whether the version can price a
// token-to-token swap. v1 exchanges only hold ETH/token reserves, so a
// token pair has no single pool to price against; trading still works
// there by composing two hops through ETH.
func (v Version) SupportsTokenPairPricing() bool {
	return v != V1
}

// SupportsCustomRoutes reports whether a caller may supply an explicit
// multi-hop path. Only the v2 router executes arbitrary paths; v1 knows
// only its implicit ETH bridge and v3 trades single pools.
func (v Version) SupportsCustomRoutes() bool {
	return v == V2
}

// SupportsFeeOnTransfer reports whether the version has router variants
// tolerating tokens that take a cut on transfer.
func (v Version) SupportsFeeOnTransfer() bool {
	return v == V2
}

// SupportsLiquidityProvision reports whether the engine can add and remove
// liquidity on this version. Kept to v1, where the exchange contract itself
// is the LP token.
func (v Version) SupportsLiquidityProvision() bool {
	return v == V1
}
