package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/infrastructure/dex"
	ethclient "github.com/antibagr/uniswap-go/internal/infrastructure/ethereum"
)

// deadlineWindow is how long a submitted swap stays valid on chain.
const deadlineWindow = 10 * time.Minute

// ErrNoWallet is returned by trading calls on an Exchange constructed
// without a wallet.
var ErrNoWallet = errors.New("no wallet attached, exchange is read-only")

// TradeOptions tunes a single trade. The zero value trades with the
// version's default fee tier, automatic routing, the default slippage
// margin and the trader as recipient.
type TradeOptions struct {
	// FeeTier selects the pool on v3 and must be set there.
	FeeTier entities.FeeTier

	// Path overrides routing with an explicit token list (v2 only).
	Path []common.Address

	// Slippage widens the input ceiling on exact-output trades. nil means
	// DefaultSlippage; an explicit zero disables the margin so the ceiling
	// is the quoted cost itself.
	Slippage *float64

	// Recipient receives the swap output. The zero address means the
	// trader's own account.
	Recipient common.Address

	// FeeOnTransfer selects the v2 router variants that tolerate tokens
	// taking a cut on transfer. Exact input only; v1 has no such variants
	// and ignores the flag.
	FeeOnTransfer bool
}

// MakeTrade swaps an exact amountIn of tokenIn for tokenOut and submits the
// transaction. The output is whatever the pools return at execution time;
// the quoted figure in the receipt is informational.
func (e *Exchange) MakeTrade(ctx context.Context, tokenIn, tokenOut entities.Token, amountIn *big.Int, opts *TradeOptions) (*entities.TradeReceipt, error) {
	if e.wallet == nil {
		return nil, ErrNoWallet
	}
	if opts == nil {
		opts = &TradeOptions{}
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("trade amount must be positive: %w", entities.ErrInvalidTokenArgument)
	}

	fee, err := entities.ResolveFeeTier(e.version, opts.FeeTier)
	if err != nil {
		return nil, err
	}
	if err := e.checkFeeOnTransfer(opts.FeeOnTransfer, entities.ExactInput); err != nil {
		return nil, err
	}

	route, err := e.resolveRoute(ctx, tokenIn, tokenOut, fee, opts.Path, false)
	if err != nil {
		return nil, err
	}
	amountOut, err := route.AmountOut(amountIn)
	if err != nil {
		return nil, err
	}

	order := e.newOrder(entities.ExactInput, route, opts)
	order.AmountIn = new(big.Int).Set(amountIn)
	order.AmountOut = amountOut

	if err := e.checkBalance(ctx, tokenIn, order.AmountIn); err != nil {
		return nil, err
	}
	return e.execute(ctx, order, tokenIn)
}

// MakeTradeForExactOutput swaps tokenIn for an exact amountOut of tokenOut
// and submits the transaction. The input is bounded by the quoted cost plus
// the slippage margin; on-chain the pools pull only what the trade needs and
// the rest never leaves the trader.
func (e *Exchange) MakeTradeForExactOutput(ctx context.Context, tokenIn, tokenOut entities.Token, amountOut *big.Int, opts *TradeOptions) (*entities.TradeReceipt, error) {
	if e.wallet == nil {
		return nil, ErrNoWallet
	}
	if opts == nil {
		opts = &TradeOptions{}
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("trade amount must be positive: %w", entities.ErrInvalidTokenArgument)
	}

	fee, err := entities.ResolveFeeTier(e.version, opts.FeeTier)
	if err != nil {
		return nil, err
	}
	if err := e.checkFeeOnTransfer(opts.FeeOnTransfer, entities.ExactOutput); err != nil {
		return nil, err
	}

	route, err := e.resolveRoute(ctx, tokenIn, tokenOut, fee, opts.Path, false)
	if err != nil {
		return nil, err
	}
	amounts, err := route.AmountsIn(amountOut)
	if err != nil {
		return nil, err
	}
	cost := amounts[0]

	order := e.newOrder(entities.ExactOutput, route, opts)
	order.AmountIn = cost
	order.AmountOut = new(big.Int).Set(amountOut)
	order.AmountInMax = applySlippage(cost, e.slippageFor(opts))

	// A bridged v1 exact-output trade also bounds its native leg: the
	// second exchange's quoted cost, inflated by the fixed 20% margin.
	if e.version == entities.V1 && len(route.Hops) == 2 {
		order.BridgeAllowance = entities.InflateBridgeAllowance(amounts[1])
	}

	if err := e.checkBalance(ctx, tokenIn, order.AmountInMax); err != nil {
		return nil, err
	}
	return e.execute(ctx, order, tokenIn)
}

// AddLiquidity deposits up to maxNative wei plus the matching amount of
// token into the pool and mints LP shares to the trader. Supported where
// the version's adapter can provision pools directly.
func (e *Exchange) AddLiquidity(ctx context.Context, token entities.Token, maxNative *big.Int) (common.Hash, error) {
	if e.wallet == nil {
		return common.Hash{}, ErrNoWallet
	}
	provider, ok := e.adapter.(dex.LiquidityAdapter)
	if !ok {
		return common.Hash{}, &entities.UnsupportedOperationError{Version: e.version, Operation: "liquidity provision"}
	}
	if maxNative == nil || maxNative.Sign() <= 0 {
		return common.Hash{}, fmt.Errorf("deposit must be positive: %w", entities.ErrInvalidTokenArgument)
	}
	if token.IsNative() {
		return common.Hash{}, fmt.Errorf("liquidity pairs a token with the native asset: %w", entities.ErrInvalidTokenArgument)
	}

	if err := e.checkBalance(ctx, entities.ETH, maxNative); err != nil {
		return common.Hash{}, err
	}

	deadline := time.Now().Add(deadlineWindow).Unix()
	call, tokenCeiling, err := provider.BuildAddLiquidity(ctx, token, maxNative, deadline)
	if err != nil {
		return common.Hash{}, err
	}

	if err := e.checkBalance(ctx, token, tokenCeiling); err != nil {
		return common.Hash{}, err
	}
	if err := e.ensureApproval(ctx, token, call.To, tokenCeiling); err != nil {
		return common.Hash{}, err
	}

	txHash, err := e.wallet.Submit(ctx, call.To, call.Value, call.Data, call.GasLimit)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit deposit: %w", err)
	}

	e.logger.Info("liquidity added",
		zap.String("token", token.Address.Hex()),
		zap.String("max_native", maxNative.String()),
		zap.String("tx", txHash.Hex()))
	return txHash, nil
}

// RemoveLiquidity burns LP shares and withdraws both sides of the position.
func (e *Exchange) RemoveLiquidity(ctx context.Context, token entities.Token, liquidity *big.Int) (common.Hash, error) {
	if e.wallet == nil {
		return common.Hash{}, ErrNoWallet
	}
	provider, ok := e.adapter.(dex.LiquidityAdapter)
	if !ok {
		return common.Hash{}, &entities.UnsupportedOperationError{Version: e.version, Operation: "liquidity provision"}
	}
	if liquidity == nil || liquidity.Sign() <= 0 {
		return common.Hash{}, fmt.Errorf("liquidity must be positive: %w", entities.ErrInvalidTokenArgument)
	}

	deadline := time.Now().Add(deadlineWindow).Unix()
	call, err := provider.BuildRemoveLiquidity(ctx, token, liquidity, deadline)
	if err != nil {
		return common.Hash{}, err
	}

	// The v1 exchange contract is its own LP share token.
	shares := entities.Token{Address: call.To, Symbol: "UNI-V1", Decimals: 18}
	if err := e.checkBalance(ctx, shares, liquidity); err != nil {
		return common.Hash{}, err
	}

	txHash, err := e.wallet.Submit(ctx, call.To, call.Value, call.Data, call.GasLimit)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit withdrawal: %w", err)
	}

	e.logger.Info("liquidity removed",
		zap.String("token", token.Address.Hex()),
		zap.String("liquidity", liquidity.String()),
		zap.String("tx", txHash.Hex()))
	return txHash, nil
}

// newOrder fills the parts of a trade order shared by both sides: identity,
// expiry, and flags the version actually honors.
func (e *Exchange) newOrder(side entities.TradeSide, route *entities.Route, opts *TradeOptions) *entities.TradeOrder {
	trader := e.wallet.Address()
	recipient := opts.Recipient
	if recipient == (common.Address{}) {
		recipient = trader
	}
	order := &entities.TradeOrder{
		Version:   e.version,
		Side:      side,
		Route:     route,
		Trader:    trader,
		Recipient: recipient,
		Deadline:  time.Now().Add(deadlineWindow).Unix(),
	}
	if e.version.SupportsFeeOnTransfer() {
		order.FeeOnTransfer = opts.FeeOnTransfer
	}
	return order
}

// checkFeeOnTransfer rejects the flag where no tolerant router function
// exists: anywhere on v3, and for exact output on v2 since the tolerant
// variants only fix the input side.
func (e *Exchange) checkFeeOnTransfer(flag bool, side entities.TradeSide) error {
	if !flag {
		return nil
	}
	if e.version == entities.V3 {
		return &entities.UnsupportedOperationError{Version: e.version, Operation: "fee-on-transfer swaps"}
	}
	if e.version == entities.V2 && side == entities.ExactOutput {
		return &entities.UnsupportedOperationError{Version: e.version, Operation: "fee-on-transfer exact-output swaps"}
	}
	return nil
}

// checkBalance verifies the trader can cover need units of the asset.
func (e *Exchange) checkBalance(ctx context.Context, token entities.Token, need *big.Int) error {
	trader := e.wallet.Address()

	var have *big.Int
	var err error
	if token.IsNative() {
		have, err = e.chain.NativeBalance(ctx, trader)
	} else {
		have, err = e.chain.TokenBalance(ctx, token.Address, trader)
	}
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	if have.Cmp(need) < 0 {
		return entities.NewInsufficientBalanceError(have, need)
	}
	return nil
}

// ensureApproval makes sure spender may pull at least need units of token
// from the trader, submitting an unlimited approval and waiting for it to
// mine when the current allowance falls short.
func (e *Exchange) ensureApproval(ctx context.Context, token entities.Token, spender common.Address, need *big.Int) error {
	owner := e.wallet.Address()
	allowance, err := e.chain.Allowance(ctx, token.Address, owner, spender)
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}
	if allowance.Cmp(need) >= 0 {
		return nil
	}

	data, err := ethclient.ApproveCalldata(spender, ethclient.MaxApproval)
	if err != nil {
		return err
	}
	txHash, err := e.wallet.Submit(ctx, token.Address, nil, data, 0)
	if err != nil {
		return fmt.Errorf("submit approval: %w", err)
	}

	e.logger.Info("approval submitted",
		zap.String("token", token.Address.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("tx", txHash.Hex()))

	// The swap would revert if it ran before the allowance is live.
	if err := e.wallet.WaitMined(ctx, txHash); err != nil {
		return fmt.Errorf("approval not mined: %w", err)
	}
	return nil
}

// execute approves the input where needed, packs the version-specific call
// and submits it.
func (e *Exchange) execute(ctx context.Context, order *entities.TradeOrder, tokenIn entities.Token) (*entities.TradeReceipt, error) {
	if !tokenIn.IsNative() {
		need := order.AmountIn
		if order.Side == entities.ExactOutput {
			need = order.AmountInMax
		}
		if err := e.ensureApproval(ctx, tokenIn, e.adapter.ApprovalTarget(order.Route), need); err != nil {
			return nil, err
		}
	}

	call, err := e.adapter.BuildSwapCall(ctx, order)
	if err != nil {
		return nil, err
	}

	txHash, err := e.wallet.Submit(ctx, call.To, call.Value, call.Data, call.GasLimit)
	if err != nil {
		return nil, fmt.Errorf("submit swap: %w", err)
	}

	e.logger.Info("trade submitted",
		zap.String("version", e.version.String()),
		zap.String("side", order.Side.String()),
		zap.String("token_in", order.Route.TokenIn.Symbol),
		zap.String("token_out", order.Route.TokenOut.Symbol),
		zap.String("amount_in", order.AmountIn.String()),
		zap.String("amount_out", order.AmountOut.String()),
		zap.String("tx", txHash.Hex()))

	return &entities.TradeReceipt{
		TxHash:      txHash,
		Version:     order.Version,
		Side:        order.Side,
		AmountIn:    order.AmountIn,
		AmountOut:   order.AmountOut,
		AmountInMax: order.AmountInMax,
		Recipient:   order.Recipient,
		Deadline:    order.Deadline,
	}, nil
}

// slippageFor picks the margin for one trade: the caller's explicit figure
// when set, the instance default otherwise.
func (e *Exchange) slippageFor(opts *TradeOptions) float64 {
	if opts.Slippage != nil {
		return *opts.Slippage
	}
	return e.slippage
}

// applySlippage widens a quoted cost into the input ceiling sent on chain.
// The +1 keeps the ceiling strictly above the scaled cost after truncation;
// with a zero margin the ceiling is exactly the quoted cost, which already
// carries its own rounding guard.
func applySlippage(cost *big.Int, slippage float64) *big.Int {
	bps := slippageBps(slippage)
	if bps == 0 {
		return new(big.Int).Set(cost)
	}
	ceiling := new(big.Int).Mul(cost, big.NewInt(10000+bps))
	ceiling.Div(ceiling, big.NewInt(10000))
	return ceiling.Add(ceiling, big.NewInt(1))
}

// slippageBps converts a fractional margin to whole basis points, rounding
// half away from zero. Negative inputs clamp to zero.
func slippageBps(slippage float64) int64 {
	if slippage <= 0 {
		return 0
	}
	return int64(math.Round(slippage * 10000))
}
