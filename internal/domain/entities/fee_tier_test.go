package entities

import (
	"errors"
	"math/big"
	"testing"
)

func TestResolveFeeTier(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		tier    FeeTier
		want    FeeTier
		wantErr error
	}{
		{name: "v1 default", version: V1, tier: 0, want: FeeTier3000},
		{name: "v2 default", version: V2, tier: 0, want: FeeTier3000},
		{name: "v3 requires explicit tier", version: V3, tier: 0, wantErr: ErrExplicitFeeTierRequired},
		{name: "v1 explicit 3000", version: V1, tier: FeeTier3000, want: FeeTier3000},
		{name: "v2 explicit 3000", version: V2, tier: FeeTier3000, want: FeeTier3000},
		{name: "v1 rejects 500", version: V1, tier: FeeTier500, wantErr: ErrInvalidFeeTier},
		{name: "v2 rejects 10000", version: V2, tier: FeeTier10000, wantErr: ErrInvalidFeeTier},
		{name: "v3 accepts 100", version: V3, tier: FeeTier100, want: FeeTier100},
		{name: "v3 accepts 500", version: V3, tier: FeeTier500, want: FeeTier500},
		{name: "v3 accepts 3000", version: V3, tier: FeeTier3000, want: FeeTier3000},
		{name: "v3 accepts 10000", version: V3, tier: FeeTier10000, want: FeeTier10000},
		{name: "v3 rejects undeployed", version: V3, tier: 1234, wantErr: ErrInvalidFeeTier},
		{name: "v2 rejects undeployed", version: V2, tier: 42, wantErr: ErrInvalidFeeTier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveFeeTier(tt.version, tt.tier)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveFeeTier(%s, %d) error = %v, want %v", tt.version, tt.tier, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveFeeTier(%s, %d) unexpected error: %v", tt.version, tt.tier, err)
			}
			if got != tt.want {
				t.Errorf("ResolveFeeTier(%s, %d) = %d, want %d", tt.version, tt.tier, got, tt.want)
			}
		})
	}
}

func TestFeeTierMultiplier(t *testing.T) {
	num, den := FeeTier3000.Multiplier()
	if num.Cmp(big.NewInt(997000)) != 0 || den.Cmp(big.NewInt(1000000)) != 0 {
		t.Errorf("FeeTier3000.Multiplier() = %v/%v, want 997000/1000000", num, den)
	}

	// 997000/1000000 must reduce to the classic 997/1000.
	g := new(big.Int).GCD(nil, nil, num, den)
	if new(big.Int).Div(num, g).Cmp(big.NewInt(997)) != 0 {
		t.Errorf("FeeTier3000 multiplier does not reduce to 997/1000")
	}

	num, den = FeeTier500.Multiplier()
	if num.Cmp(big.NewInt(999500)) != 0 || den.Cmp(big.NewInt(1000000)) != 0 {
		t.Errorf("FeeTier500.Multiplier() = %v/%v, want 999500/1000000", num, den)
	}
}

func TestFeeTierString(t *testing.T) {
	tests := []struct {
		tier FeeTier
		want string
	}{
		{FeeTier100, "0.01%"},
		{FeeTier500, "0.05%"},
		{FeeTier3000, "0.3%"},
		{FeeTier10000, "1%"},
	}
	for _, tt := range tests {
		if got := tt.tier.String(); got != tt.want {
			t.Errorf("FeeTier(%d).String() = %q, want %q", tt.tier, got, tt.want)
		}
	}
}
