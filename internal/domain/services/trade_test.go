package services

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
)

var approveSelector = []byte{0x09, 0x5e, 0xa7, 0xb3}

func tradingExchange(adapter *mockAdapter) (*Exchange, *mockChain, *mockWallet) {
	chain := newMockChain()
	wallet := newMockWallet()
	return NewExchange(adapter, chain, wallet, nil), chain, wallet
}

func TestMakeTradeNativeInput(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	ex, _, wallet := tradingExchange(adapter)

	receipt, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	require.NoError(t, err)

	// Native input needs no approval, so the swap is the only submission.
	require.Len(t, wallet.submits, 1)
	assert.Equal(t, adapter.call.To, wallet.submits[0].to)
	assert.Equal(t, adapter.call.Data, wallet.submits[0].data)

	assert.Equal(t, entities.ExactInput, receipt.Side)
	assert.Equal(t, int64(1000), receipt.AmountIn.Int64())
	assert.Equal(t, int64(996), receipt.AmountOut.Int64())
	assert.Nil(t, receipt.AmountInMax)

	require.NotNil(t, adapter.built)
	assert.Nil(t, adapter.built.AmountInMax)
	assert.Nil(t, adapter.built.BridgeAllowance)
}

func TestMakeTradeApprovesTokenInput(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.DAI.Address, entities.ETH.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	ex, chain, wallet := tradingExchange(adapter)
	chain.allowances[entities.DAI.Address] = big.NewInt(0)

	_, err := ex.MakeTrade(context.Background(), entities.DAI, entities.ETH, big.NewInt(1000), nil)
	require.NoError(t, err)

	// Approval first, swap second; the approval must be mined in between.
	require.Len(t, wallet.submits, 2)
	approve := wallet.submits[0]
	assert.Equal(t, entities.DAI.Address, approve.to)
	require.Len(t, approve.data, 68)
	assert.Equal(t, approveSelector, approve.data[:4])
	assert.Len(t, wallet.mined, 1)

	assert.Equal(t, adapter.call.To, wallet.submits[1].to)
}

func TestMakeTradeSkipsApprovalWhenCovered(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.DAI.Address, entities.ETH.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	ex, _, wallet := tradingExchange(adapter)

	_, err := ex.MakeTrade(context.Background(), entities.DAI, entities.ETH, big.NewInt(1000), nil)
	require.NoError(t, err)
	assert.Len(t, wallet.submits, 1)
	assert.Empty(t, wallet.mined)
}

func TestMakeTradeInsufficientBalance(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.DAI.Address, entities.ETH.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	ex, chain, wallet := tradingExchange(adapter)
	chain.tokenBalances[entities.DAI.Address] = big.NewInt(999)

	_, err := ex.MakeTrade(context.Background(), entities.DAI, entities.ETH, big.NewInt(1000), nil)

	var balErr *entities.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, int64(999), balErr.Have.Int64())
	assert.Equal(t, int64(1000), balErr.Need.Int64())
	assert.Empty(t, wallet.submits)
}

func TestMakeTradeNoWallet(t *testing.T) {
	ex := readOnlyExchange(newMockAdapter(entities.V2))

	_, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestMakeTradeNonPositiveAmount(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	ex, _, _ := tradingExchange(adapter)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		_, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, amount, nil)
		assert.ErrorIs(t, err, entities.ErrInvalidTokenArgument)
	}
}

func TestMakeTradeRecipient(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	ex, _, wallet := tradingExchange(adapter)

	_, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	require.NoError(t, err)
	assert.Equal(t, wallet.address, adapter.built.Recipient)
	assert.Equal(t, wallet.address, adapter.built.Trader)

	other := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	_, err = ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), &TradeOptions{Recipient: other})
	require.NoError(t, err)
	assert.Equal(t, other, adapter.built.Recipient)
	assert.Equal(t, wallet.address, adapter.built.Trader)
}

func TestMakeTradeDeadline(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	ex, _, _ := tradingExchange(adapter)

	before := time.Now().Add(deadlineWindow).Unix()
	_, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	after := time.Now().Add(deadlineWindow).Unix()

	require.NoError(t, err)
	assert.GreaterOrEqual(t, adapter.built.Deadline, before)
	assert.LessOrEqual(t, adapter.built.Deadline, after)
}

func TestMakeTradeFeeOnTransfer(t *testing.T) {
	t.Run("v2 keeps the flag", func(t *testing.T) {
		adapter := newMockAdapter(entities.V2)
		adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
		ex, _, _ := tradingExchange(adapter)

		_, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), &TradeOptions{FeeOnTransfer: true})
		require.NoError(t, err)
		assert.True(t, adapter.built.FeeOnTransfer)
	})

	t.Run("v1 ignores the flag", func(t *testing.T) {
		adapter := newMockAdapter(entities.V1)
		adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV1(entities.DAI, 1_000_000, 1_000_000))
		ex, _, _ := tradingExchange(adapter)

		_, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), &TradeOptions{FeeOnTransfer: true})
		require.NoError(t, err)
		assert.False(t, adapter.built.FeeOnTransfer)
	})

	t.Run("v3 rejects the flag", func(t *testing.T) {
		ex, _, _ := tradingExchange(newMockAdapter(entities.V3))

		_, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), &TradeOptions{FeeTier: entities.FeeTier3000, FeeOnTransfer: true})
		assert.ErrorIs(t, err, entities.ErrUnsupportedOperation)
	})

	t.Run("exact output rejects the flag", func(t *testing.T) {
		adapter := newMockAdapter(entities.V2)
		adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
		ex, _, _ := tradingExchange(adapter)

		_, err := ex.MakeTradeForExactOutput(context.Background(), entities.ETH, entities.DAI, big.NewInt(996), &TradeOptions{FeeOnTransfer: true})
		assert.ErrorIs(t, err, entities.ErrUnsupportedOperation)
	})
}

func TestMakeTradeForExactOutputSlippage(t *testing.T) {
	// Buying 996 out of the 1M/1M pool costs exactly 1000, so the 1%
	// ceiling lands on 1011 after the floor-plus-one.
	newEx := func() (*Exchange, *mockChain, *mockWallet, *mockAdapter) {
		adapter := newMockAdapter(entities.V2)
		adapter.SetPool(entities.DAI.Address, entities.ETH.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
		ex, chain, wallet := tradingExchange(adapter)
		return ex, chain, wallet, adapter
	}

	t.Run("balance below ceiling fails", func(t *testing.T) {
		ex, chain, wallet, _ := newEx()
		chain.tokenBalances[entities.DAI.Address] = big.NewInt(1010)

		_, err := ex.MakeTradeForExactOutput(context.Background(), entities.DAI, entities.ETH, big.NewInt(996), nil)

		var balErr *entities.InsufficientBalanceError
		require.ErrorAs(t, err, &balErr)
		assert.Equal(t, int64(1010), balErr.Have.Int64())
		assert.Equal(t, int64(1011), balErr.Need.Int64())
		assert.Empty(t, wallet.submits)
	})

	t.Run("balance at ceiling passes", func(t *testing.T) {
		ex, chain, _, adapter := newEx()
		chain.tokenBalances[entities.DAI.Address] = big.NewInt(1011)

		receipt, err := ex.MakeTradeForExactOutput(context.Background(), entities.DAI, entities.ETH, big.NewInt(996), nil)
		require.NoError(t, err)

		assert.Equal(t, entities.ExactOutput, receipt.Side)
		assert.Equal(t, int64(1000), receipt.AmountIn.Int64())
		assert.Equal(t, int64(996), receipt.AmountOut.Int64())
		assert.Equal(t, int64(1011), adapter.built.AmountInMax.Int64())
	})

	t.Run("approval covers the ceiling, not the cost", func(t *testing.T) {
		ex, chain, wallet, _ := newEx()
		chain.allowances[entities.DAI.Address] = big.NewInt(1010)

		_, err := ex.MakeTradeForExactOutput(context.Background(), entities.DAI, entities.ETH, big.NewInt(996), nil)
		require.NoError(t, err)
		assert.Len(t, wallet.submits, 2)

		wallet.submits = nil
		chain.allowances[entities.DAI.Address] = big.NewInt(1011)
		_, err = ex.MakeTradeForExactOutput(context.Background(), entities.DAI, entities.ETH, big.NewInt(996), nil)
		require.NoError(t, err)
		assert.Len(t, wallet.submits, 1)
	})

	t.Run("zero slippage keeps the quoted cost", func(t *testing.T) {
		ex, _, _, adapter := newEx()
		zero := 0.0

		_, err := ex.MakeTradeForExactOutput(context.Background(), entities.DAI, entities.ETH, big.NewInt(996), &TradeOptions{Slippage: &zero})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), adapter.built.AmountInMax.Int64())
	})

	t.Run("custom slippage", func(t *testing.T) {
		ex, _, _, adapter := newEx()
		half := 0.005

		_, err := ex.MakeTradeForExactOutput(context.Background(), entities.DAI, entities.ETH, big.NewInt(996), &TradeOptions{Slippage: &half})
		require.NoError(t, err)
		assert.Equal(t, int64(1006), adapter.built.AmountInMax.Int64())
	})
}

func TestMakeTradeForExactOutputBridged(t *testing.T) {
	adapter := newMockAdapter(entities.V1)
	adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV1(entities.DAI, 1_000_000, 2_000_000))
	adapter.SetPool(entities.ETH.Address, entities.BAT.Address, poolV1(entities.BAT, 2_000_000, 1_000_000))
	ex, _, _ := tradingExchange(adapter)

	receipt, err := ex.MakeTradeForExactOutput(context.Background(), entities.DAI, entities.BAT, big.NewInt(992), nil)
	require.NoError(t, err)

	order := adapter.built
	require.NotNil(t, order)
	require.Len(t, order.Route.Hops, 2)

	// Buying 992 BAT needs 1992 bridged wei, which costs 4004 DAI. The
	// native leg allowance carries the fixed 20% margin on 1992.
	assert.Equal(t, int64(4004), order.AmountIn.Int64())
	assert.Equal(t, int64(4045), order.AmountInMax.Int64())
	require.NotNil(t, order.BridgeAllowance)
	assert.Equal(t, int64(2391), order.BridgeAllowance.Int64())

	assert.Equal(t, int64(992), receipt.AmountOut.Int64())
}

func TestMakeTradeForExactOutputBridgeAllowanceOnlyOnV1(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.DAI.Address, entities.ETH.Address, poolV2(entities.DAI, 2_000_000, 1_000_000))
	adapter.SetPool(entities.ETH.Address, entities.BAT.Address, poolV2(entities.BAT, 2_000_000, 1_000_000))
	ex, _, _ := tradingExchange(adapter)

	_, err := ex.MakeTradeForExactOutput(context.Background(), entities.DAI, entities.BAT, big.NewInt(992), nil)
	require.NoError(t, err)

	require.Len(t, adapter.built.Route.Hops, 2)
	assert.Nil(t, adapter.built.BridgeAllowance)
}

func TestMakeTradeSubmitError(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	chain := newMockChain()
	wallet := newMockWallet()
	wallet.err = context.DeadlineExceeded
	ex := NewExchange(adapter, chain, wallet, nil)

	_, err := ex.MakeTrade(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	assert.ErrorContains(t, err, "submit swap")
}

func liquidityExchange() (*Exchange, *mockChain, *mockWallet, *mockLiquidityAdapter) {
	base := newMockAdapter(entities.V1)
	base.SetPool(entities.ETH.Address, entities.DAI.Address, poolV1(entities.DAI, 1_000_000, 2_000_000))
	adapter := &mockLiquidityAdapter{
		mockAdapter: base,
		addCall: &entities.SwapCall{
			To:    common.HexToAddress("0x00000000000000000000000000000000000000e1"),
			Data:  []byte{0x01},
			Value: big.NewInt(5000),
		},
		tokenCeiling: big.NewInt(10010),
		removeCall: &entities.SwapCall{
			To:   common.HexToAddress("0x00000000000000000000000000000000000000e1"),
			Data: []byte{0x02},
		},
	}
	chain := newMockChain()
	wallet := newMockWallet()
	return NewExchange(adapter, chain, wallet, nil), chain, wallet, adapter
}

func TestAddLiquidity(t *testing.T) {
	t.Run("approves and deposits", func(t *testing.T) {
		ex, chain, wallet, adapter := liquidityExchange()
		chain.allowances[entities.DAI.Address] = big.NewInt(0)

		txHash, err := ex.AddLiquidity(context.Background(), entities.DAI, big.NewInt(5000))
		require.NoError(t, err)
		assert.NotEqual(t, common.Hash{}, txHash)

		require.Len(t, wallet.submits, 2)
		assert.Equal(t, entities.DAI.Address, wallet.submits[0].to)
		assert.Equal(t, adapter.addCall.To, wallet.submits[1].to)
		assert.Equal(t, adapter.addCall.Value, wallet.submits[1].value)
		assert.Equal(t, int64(5000), adapter.gotMaxNative.Int64())
	})

	t.Run("token balance below ceiling", func(t *testing.T) {
		ex, chain, _, _ := liquidityExchange()
		chain.tokenBalances[entities.DAI.Address] = big.NewInt(10009)

		_, err := ex.AddLiquidity(context.Background(), entities.DAI, big.NewInt(5000))

		var balErr *entities.InsufficientBalanceError
		require.ErrorAs(t, err, &balErr)
		assert.Equal(t, int64(10010), balErr.Need.Int64())
	})

	t.Run("native balance below deposit", func(t *testing.T) {
		ex, chain, _, _ := liquidityExchange()
		chain.nativeBalance = big.NewInt(4999)

		_, err := ex.AddLiquidity(context.Background(), entities.DAI, big.NewInt(5000))
		assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
	})

	t.Run("unsupported without a liquidity adapter", func(t *testing.T) {
		ex, _, _ := tradingExchange(newMockAdapter(entities.V2))

		_, err := ex.AddLiquidity(context.Background(), entities.DAI, big.NewInt(5000))
		assert.ErrorIs(t, err, entities.ErrUnsupportedOperation)
	})

	t.Run("rejects the native asset", func(t *testing.T) {
		ex, _, _, _ := liquidityExchange()

		_, err := ex.AddLiquidity(context.Background(), entities.ETH, big.NewInt(5000))
		assert.ErrorIs(t, err, entities.ErrInvalidTokenArgument)
	})

	t.Run("rejects non-positive deposit", func(t *testing.T) {
		ex, _, _, _ := liquidityExchange()

		_, err := ex.AddLiquidity(context.Background(), entities.DAI, big.NewInt(0))
		assert.ErrorIs(t, err, entities.ErrInvalidTokenArgument)
	})
}

func TestRemoveLiquidity(t *testing.T) {
	t.Run("burns shares", func(t *testing.T) {
		ex, chain, wallet, adapter := liquidityExchange()
		chain.tokenBalances[adapter.removeCall.To] = big.NewInt(100)

		txHash, err := ex.RemoveLiquidity(context.Background(), entities.DAI, big.NewInt(100))
		require.NoError(t, err)
		assert.NotEqual(t, common.Hash{}, txHash)

		require.Len(t, wallet.submits, 1)
		assert.Equal(t, adapter.removeCall.To, wallet.submits[0].to)
		assert.Equal(t, int64(100), adapter.gotLiquidity.Int64())
	})

	t.Run("insufficient shares", func(t *testing.T) {
		ex, chain, _, adapter := liquidityExchange()
		// The exchange contract doubles as the LP share token, so the
		// share balance lives at the pool address.
		chain.tokenBalances[adapter.removeCall.To] = big.NewInt(100)

		_, err := ex.RemoveLiquidity(context.Background(), entities.DAI, big.NewInt(101))
		assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
	})

	t.Run("unsupported without a liquidity adapter", func(t *testing.T) {
		ex, _, _ := tradingExchange(newMockAdapter(entities.V3))

		_, err := ex.RemoveLiquidity(context.Background(), entities.DAI, big.NewInt(100))
		assert.ErrorIs(t, err, entities.ErrUnsupportedOperation)
	})
}
