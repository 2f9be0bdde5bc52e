package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	ethclient "github.com/antibagr/uniswap-go/internal/infrastructure/ethereum"
)

// Uniswap V3 contract addresses (Ethereum Mainnet)
var (
	UniswapV3FactoryAddress = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	UniswapV3QuoterV2       = common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	UniswapV3RouterAddress  = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
)

var (
	// getPool(address,address,uint24) returns (address)
	getPoolSelector = common.Hex2Bytes("1698ee82")
	// quoteExactInputSingle((address,address,uint256,uint24,uint160)) returns (uint256,uint160,uint32,uint256)
	quoteExactInputSingleSelector = common.Hex2Bytes("c6a5026a")
	// quoteExactOutputSingle((address,address,uint256,uint24,uint160)) returns (uint256,uint160,uint32,uint256)
	quoteExactOutputSingleSelector = common.Hex2Bytes("bd21704a")
)

// quoteGasMargin is added on top of the quoter's gas figure, which measures
// the pool crossing only, not intrinsic gas, wrapping or transfers.
const quoteGasMargin = 100_000

const swapRouterABIJSON = `[
	{"name": "exactInputSingle", "inputs": [
		{"name": "params", "type": "tuple", "components": [
			{"name": "tokenIn", "type": "address"},
			{"name": "tokenOut", "type": "address"},
			{"name": "fee", "type": "uint24"},
			{"name": "recipient", "type": "address"},
			{"name": "deadline", "type": "uint256"},
			{"name": "amountIn", "type": "uint256"},
			{"name": "amountOutMinimum", "type": "uint256"},
			{"name": "sqrtPriceLimitX96", "type": "uint160"}]}],
	 "outputs": [{"name": "amountOut", "type": "uint256"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "exactOutputSingle", "inputs": [
		{"name": "params", "type": "tuple", "components": [
			{"name": "tokenIn", "type": "address"},
			{"name": "tokenOut", "type": "address"},
			{"name": "fee", "type": "uint24"},
			{"name": "recipient", "type": "address"},
			{"name": "deadline", "type": "uint256"},
			{"name": "amountOut", "type": "uint256"},
			{"name": "amountInMaximum", "type": "uint256"},
			{"name": "sqrtPriceLimitX96", "type": "uint160"}]}],
	 "outputs": [{"name": "amountIn", "type": "uint256"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "multicall", "inputs": [
		{"name": "data", "type": "bytes[]"}],
	 "outputs": [{"name": "results", "type": "bytes[]"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "refundETH", "inputs": [],
	 "outputs": [],
	 "stateMutability": "payable", "type": "function"}
]`

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

// UniswapV3Adapter drives the v3 factory, the SwapRouter and QuoterV2. Pools
// are keyed by (token0, token1, fee); the fee tier is part of pool identity
// and is always supplied explicitly.
//
// Pool token balances stand in for reserves: v3 concentrates liquidity in
// ticks, so constant-product math over whole-pool balances is an
// approximation. The quoter is consulted for gas estimates, not prices.
// Native output is delivered as the wrapped token.
type UniswapV3Adapter struct {
	ethClient  *ethclient.Client
	factory    common.Address
	quoter     common.Address
	swapRouter common.Address
	weth       common.Address
	routerABI  abi.ABI
}

// NewUniswapV3Adapter creates a v3 adapter against the mainnet contracts.
func NewUniswapV3Adapter(ethClient *ethclient.Client) (*UniswapV3Adapter, error) {
	parsed, err := abi.JSON(strings.NewReader(swapRouterABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse swap router ABI: %w", err)
	}
	return &UniswapV3Adapter{
		ethClient:  ethClient,
		factory:    UniswapV3FactoryAddress,
		quoter:     UniswapV3QuoterV2,
		swapRouter: UniswapV3RouterAddress,
		weth:       entities.WETH.Address,
		routerABI:  parsed,
	}, nil
}

// Version returns the protocol version this adapter drives.
func (a *UniswapV3Adapter) Version() entities.Version {
	return entities.V3
}

func (a *UniswapV3Adapter) wrapped(token entities.Token) entities.Token {
	if token.IsNative() {
		return entities.WETH
	}
	return token
}

// poolAddress calls factory.getPool for one specific fee tier.
func (a *UniswapV3Adapter) poolAddress(ctx context.Context, token0, token1 common.Address, fee entities.FeeTier) (common.Address, error) {
	// Encode: getPool(address,address,uint24)
	data := make([]byte, 100)
	copy(data[0:4], getPoolSelector)
	copy(data[16:36], token0.Bytes())
	copy(data[48:68], token1.Bytes())
	feeBytes := big.NewInt(int64(fee)).Bytes()
	copy(data[100-len(feeBytes):100], feeBytes)

	result, err := a.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &a.factory,
		Data: data,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("getPool call: %w", err)
	}
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("invalid getPool response length")
	}

	return common.BytesToAddress(result[12:32]), nil
}

// ResolvePool finds the pool deployed for the pair at exactly the given fee
// tier and reads both token balances as reserves.
func (a *UniswapV3Adapter) ResolvePool(ctx context.Context, tokenA, tokenB entities.Token, fee entities.FeeTier) (*entities.Pool, error) {
	token0, token1 := a.wrapped(tokenA), a.wrapped(tokenB)
	if bytes.Compare(token1.Address.Bytes(), token0.Address.Bytes()) < 0 {
		token0, token1 = token1, token0
	}

	poolAddr, err := a.poolAddress(ctx, token0.Address, token1.Address, fee)
	if err != nil {
		return nil, err
	}
	if poolAddr == ethclient.ZeroAddress {
		return nil, fmt.Errorf("no v3 pool for %s/%s at %s: %w",
			token0.Address.Hex(), token1.Address.Hex(), fee, entities.ErrNoPoolFound)
	}

	reserve0, err := a.ethClient.TokenBalance(ctx, token0.Address, poolAddr)
	if err != nil {
		return nil, fmt.Errorf("pool balance of %s: %w", token0.Address.Hex(), err)
	}
	reserve1, err := a.ethClient.TokenBalance(ctx, token1.Address, poolAddr)
	if err != nil {
		return nil, fmt.Errorf("pool balance of %s: %w", token1.Address.Hex(), err)
	}

	return &entities.Pool{
		Address:   poolAddr,
		Token0:    token0,
		Token1:    token1,
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		Fee:       fee,
		Version:   entities.V3,
		UpdatedAt: time.Now().Unix(),
	}, nil
}

// ApprovalTarget is the swap router.
func (a *UniswapV3Adapter) ApprovalTarget(route *entities.Route) common.Address {
	return a.swapRouter
}

// BuildSwapCall packs an exactInputSingle or exactOutputSingle router call.
func (a *UniswapV3Adapter) BuildSwapCall(ctx context.Context, order *entities.TradeOrder) (*entities.SwapCall, error) {
	route := order.Route
	if route == nil || len(route.Hops) != 1 {
		return nil, fmt.Errorf("v3 orders carry exactly one pool")
	}

	hop := route.Hops[0]
	fee := big.NewInt(int64(hop.Pool.Fee))
	deadline := big.NewInt(order.Deadline)
	sqrtPriceLimit := big.NewInt(0) // no price limit; the quote bounds the trade

	var (
		data  []byte
		value *big.Int
		err   error
	)

	if order.Side == entities.ExactInput {
		params := exactInputSingleParams{
			TokenIn:           hop.TokenIn,
			TokenOut:          hop.TokenOut,
			Fee:               fee,
			Recipient:         order.Recipient,
			Deadline:          deadline,
			AmountIn:          order.AmountIn,
			AmountOutMinimum:  permissiveMin,
			SqrtPriceLimitX96: sqrtPriceLimit,
		}
		data, err = a.routerABI.Pack("exactInputSingle", params)
		if route.TokenIn.IsNative() {
			value = order.AmountIn
		}
	} else {
		params := exactOutputSingleParams{
			TokenIn:           hop.TokenIn,
			TokenOut:          hop.TokenOut,
			Fee:               fee,
			Recipient:         order.Recipient,
			Deadline:          deadline,
			AmountOut:         order.AmountOut,
			AmountInMaximum:   order.AmountInMax,
			SqrtPriceLimitX96: sqrtPriceLimit,
		}
		data, err = a.routerABI.Pack("exactOutputSingle", params)
		if err == nil && route.TokenIn.IsNative() {
			// The router only wraps what the swap consumes; the refund call
			// recovers the rest of the attached value in the same tx.
			value = order.AmountInMax
			data, err = a.wrapWithRefund(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("pack v3 swap: %w", err)
	}

	call := &entities.SwapCall{
		To:    a.swapRouter,
		Data:  data,
		Value: value,
	}

	if gas, gasErr := a.quoteGas(ctx, order); gasErr == nil && gas > 0 {
		call.GasLimit = gas + quoteGasMargin
	}
	return call, nil
}

// wrapWithRefund bundles a swap with refundETH through the router's multicall.
func (a *UniswapV3Adapter) wrapWithRefund(swapData []byte) ([]byte, error) {
	refund, err := a.routerABI.Pack("refundETH")
	if err != nil {
		return nil, err
	}
	return a.routerABI.Pack("multicall", [][]byte{swapData, refund})
}

// quoteGas asks QuoterV2 how much gas the pool crossing will take. Quoter
// failures are reported as errors and the caller falls back to node-side
// estimation.
func (a *UniswapV3Adapter) quoteGas(ctx context.Context, order *entities.TradeOrder) (uint64, error) {
	if a.ethClient == nil {
		return 0, fmt.Errorf("no rpc client attached")
	}
	hop := order.Route.Hops[0]

	selector := quoteExactInputSingleSelector
	amount := order.AmountIn
	if order.Side == entities.ExactOutput {
		selector = quoteExactOutputSingleSelector
		amount = order.AmountOut
	}

	// QuoterV2 params struct, all fields static:
	// (tokenIn, tokenOut, amount, fee, sqrtPriceLimitX96)
	data := make([]byte, 4+32*5)
	copy(data[0:4], selector)
	copy(data[4+12:4+32], hop.TokenIn.Bytes())
	copy(data[36+12:36+32], hop.TokenOut.Bytes())
	amountBytes := amount.Bytes()
	copy(data[68+32-len(amountBytes):68+32], amountBytes)
	feeBytes := big.NewInt(int64(hop.Pool.Fee)).Bytes()
	copy(data[100+32-len(feeBytes):100+32], feeBytes)
	// sqrtPriceLimitX96 at offset 132 stays zero

	result, err := a.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &a.quoter,
		Data: data,
	})
	if err != nil {
		return 0, fmt.Errorf("quoter call: %w", err)
	}

	// Response: (amount uint256, sqrtPriceX96After uint160,
	// initializedTicksCrossed uint32, gasEstimate uint256)
	if len(result) < 128 {
		return 0, fmt.Errorf("invalid quoter response length: %d", len(result))
	}
	return new(big.Int).SetBytes(result[96:128]).Uint64(), nil
}
