package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	ethclient "github.com/antibagr/uniswap-go/internal/infrastructure/ethereum"
)

// ProtocolAdapter binds one protocol version to its on-chain mechanics:
// pool discovery, reserve reads, and the call shapes of its swap contracts.
type ProtocolAdapter interface {
	// Version reports which protocol generation this adapter drives.
	Version() entities.Version

	// ResolvePool finds the pool trading the two tokens and reads its current
	// reserves. Returns ErrNoPoolFound when the factory has no deployment for
	// the pair.
	ResolvePool(ctx context.Context, tokenA, tokenB entities.Token, fee entities.FeeTier) (*entities.Pool, error)

	// ApprovalTarget is the contract that must be allowed to pull the input
	// token before a swap over this route can execute.
	ApprovalTarget(route *entities.Route) common.Address

	// BuildSwapCall packs the swap transaction for a fully resolved order.
	BuildSwapCall(ctx context.Context, order *entities.TradeOrder) (*entities.SwapCall, error)
}

// ForVersion builds the adapter for one protocol version, wired against the
// mainnet deployments.
func ForVersion(v entities.Version, client *ethclient.Client) (ProtocolAdapter, error) {
	switch v {
	case entities.V1:
		return NewUniswapV1Adapter(client)
	case entities.V2:
		return NewUniswapV2Adapter(client)
	case entities.V3:
		return NewUniswapV3Adapter(client)
	default:
		return nil, fmt.Errorf("no adapter for version %s", v)
	}
}

// LiquidityAdapter is implemented by versions whose pools this client can
// provision directly (the v1 exchanges).
type LiquidityAdapter interface {
	// BuildAddLiquidity packs a deposit of maxNative plus matching tokens.
	// The returned ceiling is the most tokens the pool may pull; the caller
	// approves and balance-checks against it.
	BuildAddLiquidity(ctx context.Context, token entities.Token, maxNative *big.Int, deadline int64) (call *entities.SwapCall, tokenCeiling *big.Int, err error)
	BuildRemoveLiquidity(ctx context.Context, token entities.Token, liquidity *big.Int, deadline int64) (*entities.SwapCall, error)
}
