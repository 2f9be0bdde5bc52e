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

// Pair-side function selectors (first 4 bytes of the keccak256 signature hash)
var (
	// getReserves() returns (uint112 reserve0, uint112 reserve1, uint32 blockTimestampLast)
	getReservesSelector = common.Hex2Bytes("0902f1ac")
	// getPair(address,address) returns (address)
	getPairSelector = common.Hex2Bytes("e6a43905")
)

// Uniswap V2 contract addresses (Ethereum Mainnet)
var (
	UniswapV2FactoryAddress = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	UniswapV2RouterAddress  = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
)

// Router02 fragment: the six swap shapes plus the fee-on-transfer variants,
// which forgo the output-amount return value and so tolerate tokens that
// take a cut on transfer.
const routerABIJSON = `[
	{"name": "swapExactETHForTokens", "inputs": [
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "amounts", "type": "uint256[]"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "swapETHForExactTokens", "inputs": [
		{"name": "amountOut", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "amounts", "type": "uint256[]"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "swapExactTokensForETH", "inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "amounts", "type": "uint256[]"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "swapTokensForExactETH", "inputs": [
		{"name": "amountOut", "type": "uint256"},
		{"name": "amountInMax", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "amounts", "type": "uint256[]"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "swapExactTokensForTokens", "inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "amounts", "type": "uint256[]"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "swapTokensForExactTokens", "inputs": [
		{"name": "amountOut", "type": "uint256"},
		{"name": "amountInMax", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "amounts", "type": "uint256[]"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "swapExactETHForTokensSupportingFeeOnTransferTokens", "inputs": [
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [],
	 "stateMutability": "payable", "type": "function"},
	{"name": "swapExactTokensForETHSupportingFeeOnTransferTokens", "inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "swapExactTokensForTokensSupportingFeeOnTransferTokens", "inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [],
	 "stateMutability": "nonpayable", "type": "function"}
]`

// UniswapV2Adapter drives the v2 factory, its pair contracts and Router02.
// Native legs trade as the wrapped token; the router wraps and unwraps at
// the edges.
type UniswapV2Adapter struct {
	ethClient *ethclient.Client
	factory   common.Address
	router    common.Address
	weth      common.Address
	routerABI abi.ABI
}

// NewUniswapV2Adapter creates a v2 adapter against the mainnet contracts.
func NewUniswapV2Adapter(ethClient *ethclient.Client) (*UniswapV2Adapter, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse router ABI: %w", err)
	}
	return &UniswapV2Adapter{
		ethClient: ethClient,
		factory:   UniswapV2FactoryAddress,
		router:    UniswapV2RouterAddress,
		weth:      entities.WETH.Address,
		routerABI: parsed,
	}, nil
}

// Version returns the protocol version this adapter drives.
func (a *UniswapV2Adapter) Version() entities.Version {
	return entities.V2
}

// wrapped substitutes the wrapped token for the native asset; v2 pools only
// hold ERC-20s.
func (a *UniswapV2Adapter) wrapped(token entities.Token) entities.Token {
	if token.IsNative() {
		return entities.WETH
	}
	return token
}

// PairAddress returns the pair contract for two pool tokens.
func (a *UniswapV2Adapter) PairAddress(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	token0, token1 := sortTokens(tokenA, tokenB)

	// Encode getPair(token0, token1)
	data := make([]byte, 68)
	copy(data[0:4], getPairSelector)
	copy(data[16:36], token0.Bytes())
	copy(data[48:68], token1.Bytes())

	result, err := a.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &a.factory,
		Data: data,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("getPair call: %w", err)
	}
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("invalid getPair response length")
	}

	return common.BytesToAddress(result[12:32]), nil
}

// ResolvePool finds the pair for two tokens and reads its current reserves.
func (a *UniswapV2Adapter) ResolvePool(ctx context.Context, tokenA, tokenB entities.Token, fee entities.FeeTier) (*entities.Pool, error) {
	token0, token1 := a.wrapped(tokenA), a.wrapped(tokenB)
	if bytes.Compare(token1.Address.Bytes(), token0.Address.Bytes()) < 0 {
		token0, token1 = token1, token0
	}

	pairAddress, err := a.PairAddress(ctx, token0.Address, token1.Address)
	if err != nil {
		return nil, err
	}
	if pairAddress == ethclient.ZeroAddress {
		return nil, fmt.Errorf("no v2 pair for %s/%s: %w", token0.Address.Hex(), token1.Address.Hex(), entities.ErrNoPoolFound)
	}

	reserves, err := a.getReserves(ctx, pairAddress)
	if err != nil {
		return nil, err
	}

	return &entities.Pool{
		Address:   pairAddress,
		Token0:    token0,
		Token1:    token1,
		Reserve0:  reserves[0],
		Reserve1:  reserves[1],
		Fee:       fee,
		Version:   entities.V2,
		UpdatedAt: time.Now().Unix(),
	}, nil
}

// getReserves fetches reserves from a pair
func (a *UniswapV2Adapter) getReserves(ctx context.Context, pairAddress common.Address) ([2]*big.Int, error) {
	result, err := a.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &pairAddress,
		Data: getReservesSelector,
	})
	if err != nil {
		return [2]*big.Int{}, fmt.Errorf("getReserves call: %w", err)
	}
	if len(result) < 64 {
		return [2]*big.Int{}, fmt.Errorf("invalid reserves response length")
	}

	reserve0 := new(big.Int).SetBytes(result[0:32])
	reserve1 := new(big.Int).SetBytes(result[32:64])

	return [2]*big.Int{reserve0, reserve1}, nil
}

// ApprovalTarget is always the router; pairs never pull from the trader.
func (a *UniswapV2Adapter) ApprovalTarget(route *entities.Route) common.Address {
	return a.router
}

// BuildSwapCall packs the Router02 call for an order.
func (a *UniswapV2Adapter) BuildSwapCall(ctx context.Context, order *entities.TradeOrder) (*entities.SwapCall, error) {
	route := order.Route
	if route == nil || len(route.Hops) == 0 {
		return nil, fmt.Errorf("order has no route")
	}
	if order.FeeOnTransfer && order.Side == entities.ExactOutput {
		return nil, fmt.Errorf("fee-on-transfer swaps support exact input only")
	}

	path := route.Path()
	deadline := big.NewInt(order.Deadline)

	var (
		data  []byte
		value *big.Int
		err   error
	)

	switch {
	case route.TokenIn.IsNative():
		if order.Side == entities.ExactInput {
			value = order.AmountIn
			method := "swapExactETHForTokens"
			if order.FeeOnTransfer {
				method = "swapExactETHForTokensSupportingFeeOnTransferTokens"
			}
			data, err = a.routerABI.Pack(method, permissiveMin, path, order.Recipient, deadline)
		} else {
			// The router refunds the unspent part of the attached value.
			value = order.AmountInMax
			data, err = a.routerABI.Pack("swapETHForExactTokens", order.AmountOut, path, order.Recipient, deadline)
		}

	case route.TokenOut.IsNative():
		if order.Side == entities.ExactInput {
			method := "swapExactTokensForETH"
			if order.FeeOnTransfer {
				method = "swapExactTokensForETHSupportingFeeOnTransferTokens"
			}
			data, err = a.routerABI.Pack(method, order.AmountIn, permissiveMin, path, order.Recipient, deadline)
		} else {
			data, err = a.routerABI.Pack("swapTokensForExactETH", order.AmountOut, order.AmountInMax, path, order.Recipient, deadline)
		}

	default:
		if order.Side == entities.ExactInput {
			method := "swapExactTokensForTokens"
			if order.FeeOnTransfer {
				method = "swapExactTokensForTokensSupportingFeeOnTransferTokens"
			}
			data, err = a.routerABI.Pack(method, order.AmountIn, permissiveMin, path, order.Recipient, deadline)
		} else {
			data, err = a.routerABI.Pack("swapTokensForExactTokens", order.AmountOut, order.AmountInMax, path, order.Recipient, deadline)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("pack v2 swap: %w", err)
	}

	return &entities.SwapCall{
		To:    a.router,
		Data:  data,
		Value: value,
	}, nil
}

// sortTokens orders two addresses the way the factory does when assigning
// token0 and token1: ascending by raw byte value.
func sortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}
