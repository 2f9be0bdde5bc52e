package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/infrastructure/dex"
)

// DefaultSlippage is the input-ceiling margin applied to exact-output trades
// when the caller does not choose one: 1%.
const DefaultSlippage = 0.01

// QuoteOptions tunes a single pricing call. The zero value asks for the
// version's default fee tier and automatic routing.
type QuoteOptions struct {
	// FeeTier selects the pool on v3 and must be set there. On v1/v2 it may
	// be left zero or set to the fixed 0.30%.
	FeeTier entities.FeeTier

	// Path overrides routing with an explicit token list, first to last.
	// Only the v2 router executes arbitrary paths.
	Path []common.Address
}

// Exchange prices and executes swaps against one Uniswap deployment. An
// instance is bound to a single protocol version through its adapter; the
// version never changes after construction. Constructed without a wallet it
// is read-only and every trading call fails.
type Exchange struct {
	version  entities.Version
	adapter  dex.ProtocolAdapter
	chain    ChainReader
	wallet   TransactionSubmitter
	logger   *zap.Logger
	slippage float64
}

// NewExchange binds an adapter to chain access. wallet may be nil for a
// pricing-only instance.
func NewExchange(adapter dex.ProtocolAdapter, chain ChainReader, wallet TransactionSubmitter, logger *zap.Logger) *Exchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exchange{
		version:  adapter.Version(),
		adapter:  adapter,
		chain:    chain,
		wallet:   wallet,
		logger:   logger,
		slippage: DefaultSlippage,
	}
}

// Version reports the protocol generation this instance targets.
func (e *Exchange) Version() entities.Version {
	return e.version
}

// SetDefaultSlippage replaces the margin used when a trade does not carry
// its own. Values at or below zero disable the margin entirely.
func (e *Exchange) SetDefaultSlippage(s float64) {
	e.slippage = s
}

// GetPriceForExactInput quotes how much tokenOut an exact amountIn buys,
// fees included.
func (e *Exchange) GetPriceForExactInput(ctx context.Context, tokenIn, tokenOut entities.Token, amountIn *big.Int, opts *QuoteOptions) (*big.Int, error) {
	quote, err := e.QuoteExactInput(ctx, tokenIn, tokenOut, amountIn, opts)
	if err != nil {
		return nil, err
	}
	return quote.AmountOut, nil
}

// GetPriceForExactOutput quotes how much tokenIn buying an exact amountOut
// costs, fees included.
func (e *Exchange) GetPriceForExactOutput(ctx context.Context, tokenIn, tokenOut entities.Token, amountOut *big.Int, opts *QuoteOptions) (*big.Int, error) {
	quote, err := e.QuoteExactOutput(ctx, tokenIn, tokenOut, amountOut, opts)
	if err != nil {
		return nil, err
	}
	return quote.AmountIn, nil
}

// QuoteExactInput resolves a route and prices an exact-input swap over it,
// reading pool reserves fresh from the chain.
func (e *Exchange) QuoteExactInput(ctx context.Context, tokenIn, tokenOut entities.Token, amountIn *big.Int, opts *QuoteOptions) (*entities.Quote, error) {
	if opts == nil {
		opts = &QuoteOptions{}
	}
	if amountIn == nil {
		return nil, fmt.Errorf("amount in must be set: %w", entities.ErrInvalidTokenArgument)
	}

	fee, err := entities.ResolveFeeTier(e.version, opts.FeeTier)
	if err != nil {
		return nil, err
	}

	route, err := e.resolveRoute(ctx, tokenIn, tokenOut, fee, opts.Path, true)
	if err != nil {
		return nil, err
	}

	amountOut, err := route.AmountOut(amountIn)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("quoted exact input",
		zap.String("version", e.version.String()),
		zap.String("token_in", tokenIn.Symbol),
		zap.String("token_out", tokenOut.Symbol),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", amountOut.String()),
		zap.Int("hops", len(route.Hops)))

	return &entities.Quote{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    new(big.Int).Set(amountIn),
		AmountOut:   amountOut,
		Route:       route,
		PriceImpact: route.PriceImpact(amountIn),
		GasEstimate: estimateGas(route),
	}, nil
}

// QuoteExactOutput resolves a route and prices an exact-output swap over it.
// The returned AmountIn already carries the per-hop +1 truncation guard, but
// no slippage margin; trading applies that separately.
func (e *Exchange) QuoteExactOutput(ctx context.Context, tokenIn, tokenOut entities.Token, amountOut *big.Int, opts *QuoteOptions) (*entities.Quote, error) {
	if opts == nil {
		opts = &QuoteOptions{}
	}
	if amountOut == nil {
		return nil, fmt.Errorf("amount out must be set: %w", entities.ErrInvalidTokenArgument)
	}

	fee, err := entities.ResolveFeeTier(e.version, opts.FeeTier)
	if err != nil {
		return nil, err
	}

	route, err := e.resolveRoute(ctx, tokenIn, tokenOut, fee, opts.Path, true)
	if err != nil {
		return nil, err
	}

	amountIn, err := route.AmountIn(amountOut)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("quoted exact output",
		zap.String("version", e.version.String()),
		zap.String("token_in", tokenIn.Symbol),
		zap.String("token_out", tokenOut.Symbol),
		zap.String("amount_out", amountOut.String()),
		zap.String("amount_in", amountIn.String()),
		zap.Int("hops", len(route.Hops)))

	return &entities.Quote{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    amountIn,
		AmountOut:   new(big.Int).Set(amountOut),
		Route:       route,
		PriceImpact: route.PriceImpact(amountIn),
		GasEstimate: estimateGas(route),
	}, nil
}

// GetExchangeRate prices one whole token in native wei.
func (e *Exchange) GetExchangeRate(ctx context.Context, token entities.Token, opts *QuoteOptions) (*big.Int, error) {
	if token.IsNative() {
		return nil, fmt.Errorf("native asset has no rate against itself: %w", entities.ErrInvalidTokenArgument)
	}
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(token.Decimals)), nil)
	return e.GetPriceForExactInput(ctx, token, entities.ETH, one, opts)
}

// TakerFee reports the flat fee charged to swappers. Only v1 and v2 have a
// single protocol-wide figure; v3 fees are per pool.
func (e *Exchange) TakerFee() (float64, error) {
	if e.version == entities.V3 {
		return 0, &entities.UnsupportedOperationError{Version: e.version, Operation: "flat fee schedule"}
	}
	return 0.003, nil
}

// MakerFee reports the flat fee charged to liquidity providers, zero on
// every version that has one.
func (e *Exchange) MakerFee() (float64, error) {
	if e.version == entities.V3 {
		return 0, &entities.UnsupportedOperationError{Version: e.version, Operation: "flat fee schedule"}
	}
	return 0, nil
}

// resolveRoute builds the route for a swap: the caller's explicit path when
// one is given, a direct pool when one side is native or the version pools
// token pairs directly, and the two-hop native bridge otherwise. pricing
// marks quote-only calls, which v1 rejects for token pairs.
func (e *Exchange) resolveRoute(ctx context.Context, tokenIn, tokenOut entities.Token, fee entities.FeeTier, path []common.Address, pricing bool) (*entities.Route, error) {
	if tokenIn.Address == tokenOut.Address {
		return nil, fmt.Errorf("cannot swap a token for itself: %w", entities.ErrInvalidTokenArgument)
	}

	if len(path) > 0 {
		switch e.version {
		case entities.V2:
			return e.resolveCustomRoute(ctx, tokenIn, tokenOut, fee, path)
		case entities.V3:
			return nil, fmt.Errorf("v3 trades single pools: %w", entities.ErrUnsupportedRoute)
		default:
			return nil, &entities.UnsupportedOperationError{Version: e.version, Operation: "custom routes"}
		}
	}

	bothTokens := !tokenIn.IsNative() && !tokenOut.IsNative()
	if bothTokens && pricing && !e.version.SupportsTokenPairPricing() {
		return nil, &entities.UnsupportedOperationError{Version: e.version, Operation: "token-to-token pricing"}
	}

	if !bothTokens || e.version == entities.V3 {
		pool, err := e.adapter.ResolvePool(ctx, tokenIn, tokenOut, fee)
		if err != nil {
			return nil, err
		}
		return &entities.Route{
			Version:  e.version,
			Hops:     []entities.Hop{hopFrom(pool, tokenIn)},
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
		}, nil
	}

	// Token pair on v1/v2: bridge through the native asset.
	poolIn, err := e.adapter.ResolvePool(ctx, tokenIn, entities.ETH, fee)
	if err != nil {
		return nil, err
	}
	poolOut, err := e.adapter.ResolvePool(ctx, entities.ETH, tokenOut, fee)
	if err != nil {
		return nil, err
	}

	return &entities.Route{
		Version:  e.version,
		Hops:     []entities.Hop{hopFrom(poolIn, tokenIn), hopFrom(poolOut, entities.ETH)},
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
	}, nil
}

// resolveCustomRoute builds a route from a caller-supplied token path,
// resolving each consecutive pair to a pool.
func (e *Exchange) resolveCustomRoute(ctx context.Context, tokenIn, tokenOut entities.Token, fee entities.FeeTier, path []common.Address) (*entities.Route, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("route path needs at least two tokens: %w", entities.ErrUnsupportedRoute)
	}
	if !matchesPathEnd(path[0], tokenIn) || !matchesPathEnd(path[len(path)-1], tokenOut) {
		return nil, fmt.Errorf("route path endpoints do not match the traded tokens: %w", entities.ErrUnsupportedRoute)
	}

	hops := make([]entities.Hop, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		from := entities.Token{Address: path[i]}
		to := entities.Token{Address: path[i+1]}
		pool, err := e.adapter.ResolvePool(ctx, from, to, fee)
		if err != nil {
			return nil, err
		}
		hops = append(hops, hopFrom(pool, from))
	}

	return &entities.Route{
		Version:  e.version,
		Hops:     hops,
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
	}, nil
}

// hopFrom orients a pool into a hop entered with tokenIn.
func hopFrom(pool *entities.Pool, tokenIn entities.Token) entities.Hop {
	if sameAsset(pool.Token0, tokenIn) {
		return entities.Hop{Pool: *pool, TokenIn: pool.Token0.Address, TokenOut: pool.Token1.Address}
	}
	return entities.Hop{Pool: *pool, TokenIn: pool.Token1.Address, TokenOut: pool.Token0.Address}
}

// sameAsset matches a pool-side token against a traded token. The native
// asset matches the wrapped token, which is how v2/v3 pools carry it; v1
// exchanges store the native side under the zero address and match directly.
func sameAsset(poolToken, token entities.Token) bool {
	if poolToken.Address == token.Address {
		return true
	}
	return token.IsNative() && poolToken.Address == entities.WETH.Address
}

// matchesPathEnd checks a custom path endpoint against a traded token,
// accepting the wrapped form for the native asset.
func matchesPathEnd(addr common.Address, token entities.Token) bool {
	if addr == token.Address {
		return true
	}
	return token.IsNative() && addr == entities.WETH.Address
}

// estimateGas approximates swap gas from route length: a base transfer plus
// a flat per-hop figure. Callers wanting a real number estimate against the
// node at submission time.
func estimateGas(route *entities.Route) uint64 {
	if route == nil || len(route.Hops) == 0 {
		return 150000
	}
	return 21000 + uint64(len(route.Hops))*100000
}
