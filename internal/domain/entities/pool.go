package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool represents a liquidity pool with a snapshot of its reserves.
//
// Reserves are read fresh from the chain on every resolution and never
// cached: they mutate with every on-chain trade, and two reads are not
// guaranteed consistent with each other. UpdatedAt records when this
// snapshot was taken.
type Pool struct {
	Address   common.Address `json:"address"`
	Token0    Token          `json:"token0"`
	Token1    Token          `json:"token1"`
	Reserve0  *big.Int       `json:"reserve0"`
	Reserve1  *big.Int       `json:"reserve1"`
	Fee       FeeTier        `json:"fee"`
	Version   Version        `json:"version"`
	UpdatedAt int64          `json:"updatedAt"`
}

var one = big.NewInt(1)

// ReservesFor orients the reserve pair for a swap entering with tokenIn.
func (p *Pool) ReservesFor(tokenIn common.Address) (reserveIn, reserveOut *big.Int) {
	if tokenIn == p.Token0.Address {
		return p.Reserve0, p.Reserve1
	}
	return p.Reserve1, p.Reserve0
}

func emptyReserves(reserveIn, reserveOut *big.Int) bool {
	return reserveIn == nil || reserveOut == nil || reserveIn.Sign() == 0 || reserveOut.Sign() == 0
}

// AmountOut quotes the output for a fixed input using the constant-product
// formula. The fee is taken from the input. Integer division truncates down,
// so the pool never pays out more than the invariant allows.
//
//	out = in*ν*reserveOut / (reserveIn*δ + in*ν)     where ν/δ = 1 - fee
func (p *Pool) AmountOut(amountIn *big.Int, tokenIn common.Address) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	reserveIn, reserveOut := p.ReservesFor(tokenIn)
	if emptyReserves(reserveIn, reserveOut) {
		return nil, ErrInsufficientLiquidity
	}

	num, den := p.Fee.Multiplier()
	amountInWithFee := new(big.Int).Mul(amountIn, num)

	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, den)
	denominator.Add(denominator, amountInWithFee)

	return numerator.Div(numerator, denominator), nil
}

// AmountIn quotes the input required for a fixed output. The unconditional
// +1 compensates for truncation and guarantees the computed input is never
// insufficient on-chain; it is a deliberate bias, not a rounding artifact.
//
//	in = out*reserveIn*δ / ((reserveOut-out)*ν) + 1
//
// An output meeting or exceeding the reserve cannot be bought at any price.
func (p *Pool) AmountIn(amountOut *big.Int, tokenIn common.Address) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	reserveIn, reserveOut := p.ReservesFor(tokenIn)
	if emptyReserves(reserveIn, reserveOut) {
		return nil, ErrInsufficientLiquidity
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	num, den := p.Fee.Multiplier()
	numerator := new(big.Int).Mul(amountOut, reserveIn)
	numerator.Mul(numerator, den)

	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, num)

	numerator.Div(numerator, denominator)
	return numerator.Add(numerator, one), nil
}

// SpotPrice returns the fee-free marginal rate out-per-in, scaled by 1e18.
// Zero when the pool has no reserves on either side.
func (p *Pool) SpotPrice(tokenIn common.Address) *big.Int {
	reserveIn, reserveOut := p.ReservesFor(tokenIn)
	if emptyReserves(reserveIn, reserveOut) {
		return big.NewInt(0)
	}

	precision := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	numerator := new(big.Int).Mul(reserveOut, precision)
	return numerator.Div(numerator, reserveIn)
}

// InflateBridgeAllowance applies the fixed 20% safety margin to a bridging
// leg's computed cost, rounding up: ceil(1.2x) as the exact rational
// (6x+4)/5. The margin absorbs reserve drift between quote time and
// execution time and is a protocol design constant.
func InflateBridgeAllowance(x *big.Int) *big.Int {
	inflated := new(big.Int).Mul(x, big.NewInt(6))
	inflated.Add(inflated, big.NewInt(4))
	return inflated.Div(inflated, big.NewInt(5))
}
