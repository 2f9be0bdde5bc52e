package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Hop represents a single swap step in a route
type Hop struct {
	Pool     Pool           `json:"pool"`
	TokenIn  common.Address `json:"tokenIn"`
	TokenOut common.Address `json:"tokenOut"`
}

// Route is an ordered list of pools carrying a swap from TokenIn to TokenOut.
// A route is either direct (one hop) or bridged through the native asset
// (two hops); v2 additionally accepts caller-supplied longer paths.
type Route struct {
	Version  Version `json:"version"`
	Hops     []Hop   `json:"hops"`
	TokenIn  Token   `json:"tokenIn"`
	TokenOut Token   `json:"tokenOut"`
}

// Direct reports whether the route is a single pool.
func (r *Route) Direct() bool {
	return len(r.Hops) == 1
}

// Path lists the pool token addresses along the route, input first. Native
// legs appear as the pool's wrapped token on versions that trade wrapped.
func (r *Route) Path() []common.Address {
	if len(r.Hops) == 0 {
		return nil
	}
	path := make([]common.Address, 0, len(r.Hops)+1)
	path = append(path, r.Hops[0].TokenIn)
	for _, hop := range r.Hops {
		path = append(path, hop.TokenOut)
	}
	return path
}

// AmountsOut threads an exact input through the route. The result has one
// entry per route point: amounts[0] is the input, amounts[i+1] the output of
// hop i, so the last entry is the final output.
func (r *Route) AmountsOut(amountIn *big.Int) ([]*big.Int, error) {
	if len(r.Hops) == 0 || amountIn == nil {
		return nil, ErrUnsupportedRoute
	}

	amounts := make([]*big.Int, len(r.Hops)+1)
	amounts[0] = new(big.Int).Set(amountIn)
	for i, hop := range r.Hops {
		out, err := hop.Pool.AmountOut(amounts[i], hop.TokenIn)
		if err != nil {
			return nil, err
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

// AmountOut quotes the final output for an exact input across the route.
func (r *Route) AmountOut(amountIn *big.Int) (*big.Int, error) {
	amounts, err := r.AmountsOut(amountIn)
	if err != nil {
		return nil, err
	}
	return amounts[len(amounts)-1], nil
}

// AmountsIn threads an exact output backwards through the route: first the
// bridge amount needed to buy the final output, then the input needed to buy
// that bridge amount. Same shape as AmountsOut; amounts[0] is the required
// input, intermediate entries are per-leg costs before any safety margin.
func (r *Route) AmountsIn(amountOut *big.Int) ([]*big.Int, error) {
	if len(r.Hops) == 0 || amountOut == nil {
		return nil, ErrUnsupportedRoute
	}

	amounts := make([]*big.Int, len(r.Hops)+1)
	amounts[len(r.Hops)] = new(big.Int).Set(amountOut)
	for i := len(r.Hops) - 1; i >= 0; i-- {
		hop := r.Hops[i]
		in, err := hop.Pool.AmountIn(amounts[i+1], hop.TokenIn)
		if err != nil {
			return nil, err
		}
		amounts[i] = in
	}
	return amounts, nil
}

// AmountIn quotes the required input for an exact output across the route.
func (r *Route) AmountIn(amountOut *big.Int) (*big.Int, error) {
	amounts, err := r.AmountsIn(amountOut)
	if err != nil {
		return nil, err
	}
	return amounts[0], nil
}

// PriceImpact calculates the price impact in basis points:
// (spotAmount - executedAmount) / spotAmount * 10000.
func (r *Route) PriceImpact(amountIn *big.Int) *big.Int {
	if len(r.Hops) == 0 || amountIn == nil || amountIn.Sign() == 0 {
		return big.NewInt(0)
	}

	spotAmount := r.spotAmountOut(amountIn)
	if spotAmount.Sign() == 0 {
		return big.NewInt(0)
	}

	actualAmount, err := r.AmountOut(amountIn)
	if err != nil || actualAmount.Sign() == 0 {
		return big.NewInt(10000)
	}

	diff := new(big.Int).Sub(spotAmount, actualAmount)
	if diff.Sign() <= 0 {
		return big.NewInt(0)
	}

	impactScaled := new(big.Int).Mul(diff, big.NewInt(10000))
	return impactScaled.Div(impactScaled, spotAmount)
}

// spotAmountOut is the theoretical fee-free output at the marginal rate,
// composed across hops at 1e18 precision.
func (r *Route) spotAmountOut(amountIn *big.Int) *big.Int {
	precision := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	out := new(big.Int).Set(amountIn)
	for _, hop := range r.Hops {
		rate := hop.Pool.SpotPrice(hop.TokenIn)
		if rate.Sign() == 0 {
			return big.NewInt(0)
		}
		out.Mul(out, rate)
		out.Div(out, precision)
	}
	return out
}

// Quote is the result of pricing a swap over one resolved route.
type Quote struct {
	TokenIn     Token              `json:"tokenIn"`
	TokenOut    Token              `json:"tokenOut"`
	AmountIn    *big.Int           `json:"amountIn"`
	AmountOut   *big.Int           `json:"amountOut"`
	Route       *Route             `json:"route"`
	PriceImpact *big.Int           `json:"priceImpact"` // basis points
	GasEstimate uint64             `json:"gasEstimate"`
	Sources     map[Version]string `json:"sources,omitempty"`
}
