package dex

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
)

var (
	pairA = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	pairB = common.HexToAddress("0x00000000000000000000000000000000000000f2")
)

func v2Pair(address common.Address, token0, token1 entities.Token) entities.Pool {
	return entities.Pool{
		Address:  address,
		Token0:   token0,
		Token1:   token1,
		Reserve0: big.NewInt(1_000_000),
		Reserve1: big.NewInt(2_000_000),
		Fee:      entities.FeeTier3000,
		Version:  entities.V2,
	}
}

// v2Route builds routes the way resolution does on v2: native legs ride as
// the wrapped token, token-to-token bridges through it.
func v2Route(tokenIn, tokenOut entities.Token) *entities.Route {
	wrap := func(token entities.Token) entities.Token {
		if token.IsNative() {
			return entities.WETH
		}
		return token
	}
	in, out := wrap(tokenIn), wrap(tokenOut)

	var hops []entities.Hop
	if tokenIn.IsNative() || tokenOut.IsNative() {
		hops = []entities.Hop{{Pool: v2Pair(pairA, in, out), TokenIn: in.Address, TokenOut: out.Address}}
	} else {
		hops = []entities.Hop{
			{Pool: v2Pair(pairA, in, entities.WETH), TokenIn: in.Address, TokenOut: entities.WETH.Address},
			{Pool: v2Pair(pairB, entities.WETH, out), TokenIn: entities.WETH.Address, TokenOut: out.Address},
		}
	}
	return &entities.Route{Version: entities.V2, Hops: hops, TokenIn: tokenIn, TokenOut: tokenOut}
}

func TestV2SwapCalldata(t *testing.T) {
	adapter, err := NewUniswapV2Adapter(nil)
	require.NoError(t, err)

	deadline := big.NewInt(testDeadline)
	one := big.NewInt(1)

	cases := []struct {
		name          string
		tokenIn       entities.Token
		tokenOut      entities.Token
		side          entities.TradeSide
		feeOnTransfer bool
		method        string
		args          func(path []common.Address) []any
		value         *big.Int
	}{
		{
			name: "eth in exact input", tokenIn: entities.ETH, tokenOut: entities.DAI,
			side: entities.ExactInput, method: "swapExactETHForTokens",
			args:  func(path []common.Address) []any { return []any{one, path, swapTrader, deadline} },
			value: big.NewInt(1000),
		},
		{
			name: "eth in exact input fee on transfer", tokenIn: entities.ETH, tokenOut: entities.DAI,
			side: entities.ExactInput, feeOnTransfer: true,
			method: "swapExactETHForTokensSupportingFeeOnTransferTokens",
			args:   func(path []common.Address) []any { return []any{one, path, swapTrader, deadline} },
			value:  big.NewInt(1000),
		},
		{
			name: "eth in exact output", tokenIn: entities.ETH, tokenOut: entities.DAI,
			side: entities.ExactOutput, method: "swapETHForExactTokens",
			args:  func(path []common.Address) []any { return []any{big.NewInt(900), path, swapTrader, deadline} },
			value: big.NewInt(1100),
		},
		{
			name: "eth out exact input", tokenIn: entities.DAI, tokenOut: entities.ETH,
			side: entities.ExactInput, method: "swapExactTokensForETH",
			args: func(path []common.Address) []any { return []any{big.NewInt(1000), one, path, swapTrader, deadline} },
		},
		{
			name: "eth out exact input fee on transfer", tokenIn: entities.DAI, tokenOut: entities.ETH,
			side: entities.ExactInput, feeOnTransfer: true,
			method: "swapExactTokensForETHSupportingFeeOnTransferTokens",
			args:   func(path []common.Address) []any { return []any{big.NewInt(1000), one, path, swapTrader, deadline} },
		},
		{
			name: "eth out exact output", tokenIn: entities.DAI, tokenOut: entities.ETH,
			side: entities.ExactOutput, method: "swapTokensForExactETH",
			args: func(path []common.Address) []any {
				return []any{big.NewInt(900), big.NewInt(1100), path, swapTrader, deadline}
			},
		},
		{
			name: "token to token exact input", tokenIn: entities.DAI, tokenOut: entities.BAT,
			side: entities.ExactInput, method: "swapExactTokensForTokens",
			args: func(path []common.Address) []any { return []any{big.NewInt(1000), one, path, swapTrader, deadline} },
		},
		{
			name: "token to token exact input fee on transfer", tokenIn: entities.DAI, tokenOut: entities.BAT,
			side: entities.ExactInput, feeOnTransfer: true,
			method: "swapExactTokensForTokensSupportingFeeOnTransferTokens",
			args:   func(path []common.Address) []any { return []any{big.NewInt(1000), one, path, swapTrader, deadline} },
		},
		{
			name: "token to token exact output", tokenIn: entities.DAI, tokenOut: entities.BAT,
			side: entities.ExactOutput, method: "swapTokensForExactTokens",
			args: func(path []common.Address) []any {
				return []any{big.NewInt(900), big.NewInt(1100), path, swapTrader, deadline}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := testOrder(entities.V2, v2Route(tc.tokenIn, tc.tokenOut), tc.side, swapTrader)
			order.FeeOnTransfer = tc.feeOnTransfer

			call, err := adapter.BuildSwapCall(context.Background(), order)
			require.NoError(t, err)

			assert.Equal(t, UniswapV2RouterAddress, call.To)
			assert.Equal(t, mustPack(t, adapter.routerABI, tc.method, tc.args(order.Route.Path())...), call.Data)
			if tc.value == nil {
				assert.Nil(t, call.Value)
			} else {
				assert.Equal(t, tc.value, call.Value)
			}
		})
	}
}

func TestV2BridgedPath(t *testing.T) {
	route := v2Route(entities.DAI, entities.BAT)
	assert.Equal(t, []common.Address{
		entities.DAI.Address,
		entities.WETH.Address,
		entities.BAT.Address,
	}, route.Path())
}

func TestV2SwapRecipient(t *testing.T) {
	adapter, err := NewUniswapV2Adapter(nil)
	require.NoError(t, err)

	order := testOrder(entities.V2, v2Route(entities.DAI, entities.BAT), entities.ExactInput, thirdParty)
	call, err := adapter.BuildSwapCall(context.Background(), order)
	require.NoError(t, err)

	want := mustPack(t, adapter.routerABI, "swapExactTokensForTokens",
		big.NewInt(1000), big.NewInt(1), order.Route.Path(), thirdParty, big.NewInt(testDeadline))
	assert.Equal(t, want, call.Data)
}

func TestV2FeeOnTransferExactOutputRejected(t *testing.T) {
	adapter, err := NewUniswapV2Adapter(nil)
	require.NoError(t, err)

	order := testOrder(entities.V2, v2Route(entities.DAI, entities.ETH), entities.ExactOutput, swapTrader)
	order.FeeOnTransfer = true
	_, err = adapter.BuildSwapCall(context.Background(), order)
	assert.ErrorContains(t, err, "exact input only")
}

func TestV2ApprovalTargetIsRouter(t *testing.T) {
	adapter, err := NewUniswapV2Adapter(nil)
	require.NoError(t, err)

	assert.Equal(t, UniswapV2RouterAddress, adapter.ApprovalTarget(v2Route(entities.DAI, entities.ETH)))
	assert.Equal(t, UniswapV2RouterAddress, adapter.ApprovalTarget(v2Route(entities.DAI, entities.BAT)))
}

func TestSortTokens(t *testing.T) {
	bat := entities.BAT.Address
	weth := entities.WETH.Address

	first, second := sortTokens(bat, weth)
	assert.Equal(t, bat, first)
	assert.Equal(t, weth, second)

	first, second = sortTokens(weth, bat)
	assert.Equal(t, bat, first)
	assert.Equal(t, weth, second)

	// Checksummed hex strings would order these two the other way round;
	// the factory sorts by raw bytes.
	low := common.HexToAddress("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	high := common.HexToAddress("0xB8B8b8B8b8b8B8B8B8b8b8b8B8B8B8b8b8b8B8B8")
	first, second = sortTokens(high, low)
	assert.Equal(t, low, first)
	assert.Equal(t, high, second)
}

func TestV2RouterSelectors(t *testing.T) {
	adapter, err := NewUniswapV2Adapter(nil)
	require.NoError(t, err)

	// Selectors of the deployed Router02 contract.
	selectors := map[string]string{
		"swapExactETHForTokens":    "7ff36ab5",
		"swapETHForExactTokens":    "fb3bdb41",
		"swapExactTokensForETH":    "18cbafe5",
		"swapTokensForExactETH":    "4a25d94a",
		"swapExactTokensForTokens": "38ed1739",
		"swapTokensForExactTokens": "8803dbee",
		"swapExactETHForTokensSupportingFeeOnTransferTokens":    "b6f9de95",
		"swapExactTokensForETHSupportingFeeOnTransferTokens":    "791ac947",
		"swapExactTokensForTokensSupportingFeeOnTransferTokens": "5c11d795",
	}
	for method, want := range selectors {
		assert.Equal(t, common.Hex2Bytes(want), adapter.routerABI.Methods[method].ID, method)
	}
}
