package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
)

// mockAdapter is a ProtocolAdapter over fixed pools, recording the last
// order it packed.
type mockAdapter struct {
	version entities.Version
	pools   map[string]*entities.Pool
	target  common.Address
	call    *entities.SwapCall
	built   *entities.TradeOrder
	lastFee entities.FeeTier
	err     error
}

func newMockAdapter(version entities.Version) *mockAdapter {
	return &mockAdapter{
		version: version,
		pools:   make(map[string]*entities.Pool),
		target:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		call: &entities.SwapCall{
			To:   common.HexToAddress("0x00000000000000000000000000000000000000bb"),
			Data: []byte{0xde, 0xad, 0xbe, 0xef},
		},
	}
}

func poolKey(a, b common.Address) string {
	if a.Hex() < b.Hex() {
		return a.Hex() + "-" + b.Hex()
	}
	return b.Hex() + "-" + a.Hex()
}

func (m *mockAdapter) SetPool(tokenA, tokenB common.Address, pool *entities.Pool) {
	m.pools[poolKey(tokenA, tokenB)] = pool
}

func (m *mockAdapter) Version() entities.Version { return m.version }

func (m *mockAdapter) ResolvePool(ctx context.Context, tokenA, tokenB entities.Token, fee entities.FeeTier) (*entities.Pool, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastFee = fee
	if pool, ok := m.pools[poolKey(tokenA.Address, tokenB.Address)]; ok {
		return pool, nil
	}
	return nil, entities.ErrNoPoolFound
}

func (m *mockAdapter) ApprovalTarget(route *entities.Route) common.Address {
	return m.target
}

func (m *mockAdapter) BuildSwapCall(ctx context.Context, order *entities.TradeOrder) (*entities.SwapCall, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.built = order
	return m.call, nil
}

// mockLiquidityAdapter adds the liquidity surface on top of mockAdapter.
type mockLiquidityAdapter struct {
	*mockAdapter
	addCall      *entities.SwapCall
	tokenCeiling *big.Int
	removeCall   *entities.SwapCall
	gotMaxNative *big.Int
	gotLiquidity *big.Int
}

func (m *mockLiquidityAdapter) BuildAddLiquidity(ctx context.Context, token entities.Token, maxNative *big.Int, deadline int64) (*entities.SwapCall, *big.Int, error) {
	m.gotMaxNative = maxNative
	return m.addCall, m.tokenCeiling, nil
}

func (m *mockLiquidityAdapter) BuildRemoveLiquidity(ctx context.Context, token entities.Token, liquidity *big.Int, deadline int64) (*entities.SwapCall, error) {
	m.gotLiquidity = liquidity
	return m.removeCall, nil
}

// plenty is a balance no test trade can exhaust; balances and allowances
// default to it so only tests that set a figure exercise the checks.
var plenty = new(big.Int).Lsh(big.NewInt(1), 200)

type mockChain struct {
	nativeBalance *big.Int
	tokenBalances map[common.Address]*big.Int
	allowances    map[common.Address]*big.Int
}

func newMockChain() *mockChain {
	return &mockChain{
		tokenBalances: make(map[common.Address]*big.Int),
		allowances:    make(map[common.Address]*big.Int),
	}
}

func (m *mockChain) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if m.nativeBalance != nil {
		return m.nativeBalance, nil
	}
	return plenty, nil
}

func (m *mockChain) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if b, ok := m.tokenBalances[token]; ok {
		return b, nil
	}
	return plenty, nil
}

func (m *mockChain) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if a, ok := m.allowances[token]; ok {
		return a, nil
	}
	return plenty, nil
}

type submittedTx struct {
	to       common.Address
	value    *big.Int
	data     []byte
	gasLimit uint64
}

type mockWallet struct {
	address common.Address
	submits []submittedTx
	mined   []common.Hash
	err     error
}

func newMockWallet() *mockWallet {
	return &mockWallet{address: common.HexToAddress("0x00000000000000000000000000000000000000cc")}
}

func (m *mockWallet) Address() common.Address { return m.address }

func (m *mockWallet) Submit(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64) (common.Hash, error) {
	if m.err != nil {
		return common.Hash{}, m.err
	}
	m.submits = append(m.submits, submittedTx{to: to, value: value, data: data, gasLimit: gasLimit})
	var h common.Hash
	h[0] = byte(len(m.submits))
	return h, nil
}

func (m *mockWallet) WaitMined(ctx context.Context, txHash common.Hash) error {
	m.mined = append(m.mined, txHash)
	return nil
}

// poolV1 builds a v1 exchange snapshot: native side under the zero address.
func poolV1(token entities.Token, nativeReserve, tokenReserve int64) *entities.Pool {
	return &entities.Pool{
		Address:   common.HexToAddress("0x00000000000000000000000000000000000000e1"),
		Token0:    entities.ETH,
		Token1:    token,
		Reserve0:  big.NewInt(nativeReserve),
		Reserve1:  big.NewInt(tokenReserve),
		Fee:       entities.FeeTier3000,
		Version:   entities.V1,
		UpdatedAt: time.Now().Unix(),
	}
}

// poolV2 builds a v2 pair snapshot with the wrapped token on one side.
func poolV2(token entities.Token, wrappedReserve, tokenReserve int64) *entities.Pool {
	return &entities.Pool{
		Address:   common.HexToAddress("0x00000000000000000000000000000000000000e2"),
		Token0:    token,
		Token1:    entities.WETH,
		Reserve0:  big.NewInt(tokenReserve),
		Reserve1:  big.NewInt(wrappedReserve),
		Fee:       entities.FeeTier3000,
		Version:   entities.V2,
		UpdatedAt: time.Now().Unix(),
	}
}

func readOnlyExchange(adapter *mockAdapter) *Exchange {
	return NewExchange(adapter, newMockChain(), nil, nil)
}

func TestQuoteExactInputDirect(t *testing.T) {
	adapter := newMockAdapter(entities.V1)
	adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV1(entities.DAI, 1_000_000, 2_000_000))
	ex := readOnlyExchange(adapter)

	quote, err := ex.QuoteExactInput(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1992), quote.AmountOut.Int64())
	assert.Equal(t, int64(1000), quote.AmountIn.Int64())
	assert.Len(t, quote.Route.Hops, 1)
	assert.Equal(t, uint64(121000), quote.GasEstimate)
	// Spot output at the marginal rate is 2000; fees and depth leave 1992.
	assert.Equal(t, int64(40), quote.PriceImpact.Int64())
}

func TestQuoteExactInputEqualReserves(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	ex := readOnlyExchange(adapter)

	out, err := ex.GetPriceForExactInput(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(996), out.Int64())
}

func TestQuoteExactOutputDirect(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.DAI.Address, entities.ETH.Address, poolV2(entities.DAI, 1_000_000, 1_000_000))
	ex := readOnlyExchange(adapter)

	cost, err := ex.GetPriceForExactOutput(context.Background(), entities.DAI, entities.ETH, big.NewInt(996), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cost.Int64())
}

func TestQuoteTokenToTokenBridged(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.SetPool(entities.DAI.Address, entities.ETH.Address, poolV2(entities.DAI, 2_000_000, 1_000_000))
	adapter.SetPool(entities.ETH.Address, entities.BAT.Address, poolV2(entities.BAT, 2_000_000, 1_000_000))
	ex := readOnlyExchange(adapter)

	quote, err := ex.QuoteExactInput(context.Background(), entities.DAI, entities.BAT, big.NewInt(1000), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(992), quote.AmountOut.Int64())
	require.Len(t, quote.Route.Hops, 2)
	assert.Equal(t, uint64(221000), quote.GasEstimate)

	// Both hops enter and leave on pool token addresses, bridging the
	// wrapped token in the middle.
	path := quote.Route.Path()
	require.Len(t, path, 3)
	assert.Equal(t, entities.DAI.Address, path[0])
	assert.Equal(t, entities.WETH.Address, path[1])
	assert.Equal(t, entities.BAT.Address, path[2])
}

func TestQuoteSameTokenRejected(t *testing.T) {
	ex := readOnlyExchange(newMockAdapter(entities.V2))

	_, err := ex.QuoteExactInput(context.Background(), entities.DAI, entities.DAI, big.NewInt(1000), nil)
	assert.ErrorIs(t, err, entities.ErrInvalidTokenArgument)
}

func TestQuoteFeeTierRules(t *testing.T) {
	tests := []struct {
		name    string
		version entities.Version
		fee     entities.FeeTier
		wantErr error
	}{
		{"v1 default", entities.V1, 0, nil},
		{"v2 default", entities.V2, 0, nil},
		{"v3 requires explicit", entities.V3, 0, entities.ErrExplicitFeeTierRequired},
		{"v1 rejects v3 tier", entities.V1, entities.FeeTier500, entities.ErrInvalidFeeTier},
		{"v2 rejects v3 tier", entities.V2, entities.FeeTier10000, entities.ErrInvalidFeeTier},
		{"v2 accepts its own tier", entities.V2, entities.FeeTier3000, nil},
		{"v3 explicit tier", entities.V3, entities.FeeTier500, nil},
		{"undeployed tier", entities.V2, entities.FeeTier(1234), entities.ErrInvalidFeeTier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newMockAdapter(tt.version)
			pool := poolV2(entities.DAI, 1_000_000, 1_000_000)
			if tt.version == entities.V1 {
				pool = poolV1(entities.DAI, 1_000_000, 1_000_000)
			}
			if tt.fee != 0 {
				pool.Fee = tt.fee
			}
			adapter.SetPool(entities.ETH.Address, entities.DAI.Address, pool)
			ex := readOnlyExchange(adapter)

			_, err := ex.QuoteExactInput(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), &QuoteOptions{FeeTier: tt.fee})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			resolved := tt.fee
			if resolved == 0 {
				resolved = entities.FeeTier3000
			}
			assert.Equal(t, resolved, adapter.lastFee)
		})
	}
}

func TestQuoteFeeTierResolvedBeforeTokens(t *testing.T) {
	ex := readOnlyExchange(newMockAdapter(entities.V3))

	// Both the missing tier and the identical tokens are wrong; the tier
	// check runs first.
	_, err := ex.QuoteExactInput(context.Background(), entities.DAI, entities.DAI, big.NewInt(1000), nil)
	assert.ErrorIs(t, err, entities.ErrExplicitFeeTierRequired)
}

func TestQuoteTokenPairPricingV1(t *testing.T) {
	adapter := newMockAdapter(entities.V1)
	adapter.SetPool(entities.ETH.Address, entities.DAI.Address, poolV1(entities.DAI, 2_000_000, 1_000_000))
	adapter.SetPool(entities.ETH.Address, entities.BAT.Address, poolV1(entities.BAT, 2_000_000, 1_000_000))
	ex := readOnlyExchange(adapter)

	_, err := ex.QuoteExactInput(context.Background(), entities.DAI, entities.BAT, big.NewInt(1000), nil)
	assert.ErrorIs(t, err, entities.ErrUnsupportedOperation)

	var opErr *entities.UnsupportedOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, entities.V1, opErr.Version)
}

func TestQuoteCustomRoute(t *testing.T) {
	path := []common.Address{entities.DAI.Address, entities.WETH.Address, entities.BAT.Address}

	t.Run("v2 executes the path", func(t *testing.T) {
		adapter := newMockAdapter(entities.V2)
		adapter.SetPool(entities.DAI.Address, entities.WETH.Address, poolV2(entities.DAI, 2_000_000, 1_000_000))
		adapter.SetPool(entities.WETH.Address, entities.BAT.Address, poolV2(entities.BAT, 2_000_000, 1_000_000))
		ex := readOnlyExchange(adapter)

		quote, err := ex.QuoteExactInput(context.Background(), entities.DAI, entities.BAT, big.NewInt(1000), &QuoteOptions{Path: path})
		require.NoError(t, err)
		assert.Len(t, quote.Route.Hops, 2)
		assert.Equal(t, int64(992), quote.AmountOut.Int64())
	})

	t.Run("v1 has no custom routes", func(t *testing.T) {
		ex := readOnlyExchange(newMockAdapter(entities.V1))
		_, err := ex.QuoteExactInput(context.Background(), entities.DAI, entities.BAT, big.NewInt(1000), &QuoteOptions{Path: path})
		assert.ErrorIs(t, err, entities.ErrUnsupportedOperation)
	})

	t.Run("v3 trades single pools", func(t *testing.T) {
		ex := readOnlyExchange(newMockAdapter(entities.V3))
		_, err := ex.QuoteExactInput(context.Background(), entities.DAI, entities.BAT, big.NewInt(1000), &QuoteOptions{Path: path, FeeTier: entities.FeeTier3000})
		assert.ErrorIs(t, err, entities.ErrUnsupportedRoute)
	})

	t.Run("endpoints must match the tokens", func(t *testing.T) {
		ex := readOnlyExchange(newMockAdapter(entities.V2))
		_, err := ex.QuoteExactInput(context.Background(), entities.UNI, entities.BAT, big.NewInt(1000), &QuoteOptions{Path: path})
		assert.ErrorIs(t, err, entities.ErrUnsupportedRoute)
	})
}

func TestQuoteNoPool(t *testing.T) {
	ex := readOnlyExchange(newMockAdapter(entities.V2))

	_, err := ex.QuoteExactInput(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	assert.ErrorIs(t, err, entities.ErrNoPoolFound)
}

func TestQuoteNilAmount(t *testing.T) {
	ex := readOnlyExchange(newMockAdapter(entities.V2))

	_, err := ex.QuoteExactInput(context.Background(), entities.ETH, entities.DAI, nil, nil)
	assert.ErrorIs(t, err, entities.ErrInvalidTokenArgument)
}

func TestGetExchangeRate(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	weiReserve := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))
	daiReserve := new(big.Int).Mul(big.NewInt(2_000_000), big.NewInt(1e18))
	adapter.SetPool(entities.DAI.Address, entities.ETH.Address, &entities.Pool{
		Address:  common.HexToAddress("0x00000000000000000000000000000000000000e2"),
		Token0:   entities.DAI,
		Token1:   entities.WETH,
		Reserve0: daiReserve,
		Reserve1: weiReserve,
		Fee:      entities.FeeTier3000,
		Version:  entities.V2,
	})
	ex := readOnlyExchange(adapter)

	rate, err := ex.GetExchangeRate(context.Background(), entities.DAI, nil)
	require.NoError(t, err)

	// One DAI buys about half an ETH at these reserves, shy of 0.5e18
	// by the fee.
	lower := new(big.Int).Mul(big.NewInt(49), big.NewInt(1e16))
	upper := new(big.Int).Mul(big.NewInt(50), big.NewInt(1e16))
	assert.True(t, rate.Cmp(lower) > 0, "rate %s too low", rate)
	assert.True(t, rate.Cmp(upper) < 0, "rate %s too high", rate)
}

func TestGetExchangeRateNative(t *testing.T) {
	ex := readOnlyExchange(newMockAdapter(entities.V2))

	_, err := ex.GetExchangeRate(context.Background(), entities.ETH, nil)
	assert.ErrorIs(t, err, entities.ErrInvalidTokenArgument)
}

func TestFlatFees(t *testing.T) {
	for _, version := range []entities.Version{entities.V1, entities.V2} {
		ex := readOnlyExchange(newMockAdapter(version))

		taker, err := ex.TakerFee()
		require.NoError(t, err)
		assert.Equal(t, 0.003, taker)

		maker, err := ex.MakerFee()
		require.NoError(t, err)
		assert.Equal(t, 0.0, maker)
	}

	ex := readOnlyExchange(newMockAdapter(entities.V3))
	_, err := ex.TakerFee()
	assert.ErrorIs(t, err, entities.ErrUnsupportedOperation)
	_, err = ex.MakerFee()
	assert.ErrorIs(t, err, entities.ErrUnsupportedOperation)
}

func TestEstimateGas(t *testing.T) {
	tests := []struct {
		name string
		hops int
		want uint64
	}{
		{"nil route", 0, 150000},
		{"single hop", 1, 121000},
		{"two hops", 2, 221000},
		{"three hops", 3, 321000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var route *entities.Route
			if tt.hops > 0 {
				route = &entities.Route{Hops: make([]entities.Hop, tt.hops)}
			}
			if got := estimateGas(route); got != tt.want {
				t.Errorf("estimateGas() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuoteContextErrorPassedThrough(t *testing.T) {
	adapter := newMockAdapter(entities.V2)
	adapter.err = context.DeadlineExceeded
	ex := readOnlyExchange(adapter)

	_, err := ex.QuoteExactInput(context.Background(), entities.ETH, entities.DAI, big.NewInt(1000), nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
