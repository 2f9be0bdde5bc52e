package dex

import (
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

// UniswapV1FactoryAddress is the mainnet v1 factory.
var UniswapV1FactoryAddress = common.HexToAddress("0xc0a47dFe034B400B47bDaD5FecDa2621de6c4d95")

var (
	// getExchange(address) returns (address)
	getExchangeSelector = common.Hex2Bytes("06f2bf62")
)

// v1 exchanges are standalone contracts, one per listed token, each trading
// that token against ETH. Swaps, approvals and liquidity provisioning all
// target the exchange itself; token-to-token swaps hop through ETH inside
// the input token's exchange.
const exchangeABIJSON = `[
	{"name": "ethToTokenSwapInput", "inputs": [
		{"name": "min_tokens", "type": "uint256"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "ethToTokenTransferInput", "inputs": [
		{"name": "min_tokens", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "recipient", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "ethToTokenSwapOutput", "inputs": [
		{"name": "tokens_bought", "type": "uint256"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "ethToTokenTransferOutput", "inputs": [
		{"name": "tokens_bought", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "recipient", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "tokenToEthSwapInput", "inputs": [
		{"name": "tokens_sold", "type": "uint256"},
		{"name": "min_eth", "type": "uint256"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "tokenToEthTransferInput", "inputs": [
		{"name": "tokens_sold", "type": "uint256"},
		{"name": "min_eth", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "recipient", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "tokenToEthSwapOutput", "inputs": [
		{"name": "eth_bought", "type": "uint256"},
		{"name": "max_tokens", "type": "uint256"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "tokenToEthTransferOutput", "inputs": [
		{"name": "eth_bought", "type": "uint256"},
		{"name": "max_tokens", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "recipient", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "tokenToTokenSwapInput", "inputs": [
		{"name": "tokens_sold", "type": "uint256"},
		{"name": "min_tokens_bought", "type": "uint256"},
		{"name": "min_eth_bought", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "token_addr", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "tokenToTokenTransferInput", "inputs": [
		{"name": "tokens_sold", "type": "uint256"},
		{"name": "min_tokens_bought", "type": "uint256"},
		{"name": "min_eth_bought", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "recipient", "type": "address"},
		{"name": "token_addr", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "tokenToTokenSwapOutput", "inputs": [
		{"name": "tokens_bought", "type": "uint256"},
		{"name": "max_tokens_sold", "type": "uint256"},
		{"name": "max_eth_sold", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "token_addr", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "tokenToTokenTransferOutput", "inputs": [
		{"name": "tokens_bought", "type": "uint256"},
		{"name": "max_tokens_sold", "type": "uint256"},
		{"name": "max_eth_sold", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "recipient", "type": "address"},
		{"name": "token_addr", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"},
	{"name": "addLiquidity", "inputs": [
		{"name": "min_liquidity", "type": "uint256"},
		{"name": "max_tokens", "type": "uint256"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [{"name": "", "type": "uint256"}],
	 "stateMutability": "payable", "type": "function"},
	{"name": "removeLiquidity", "inputs": [
		{"name": "amount", "type": "uint256"},
		{"name": "min_eth", "type": "uint256"},
		{"name": "min_tokens", "type": "uint256"},
		{"name": "deadline", "type": "uint256"}],
	 "outputs": [
		{"name": "", "type": "uint256"},
		{"name": "", "type": "uint256"}],
	 "stateMutability": "nonpayable", "type": "function"}
]`

// permissiveMin is the on-chain minimum for the unbounded side of an
// exact-input swap: the amount sent is fixed, whatever comes back is
// accepted, and the deadline still guards against stale inclusion.
var permissiveMin = big.NewInt(1)

// UniswapV1Adapter drives the v1 factory and its per-token exchanges.
type UniswapV1Adapter struct {
	ethClient   *ethclient.Client
	factory     common.Address
	exchangeABI abi.ABI
}

// NewUniswapV1Adapter creates a v1 adapter against the mainnet factory.
func NewUniswapV1Adapter(ethClient *ethclient.Client) (*UniswapV1Adapter, error) {
	parsed, err := abi.JSON(strings.NewReader(exchangeABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse exchange ABI: %w", err)
	}
	return &UniswapV1Adapter{
		ethClient:   ethClient,
		factory:     UniswapV1FactoryAddress,
		exchangeABI: parsed,
	}, nil
}

// Version returns the protocol version this adapter drives.
func (a *UniswapV1Adapter) Version() entities.Version {
	return entities.V1
}

// ExchangeAddress looks up the exchange deployed for a token.
func (a *UniswapV1Adapter) ExchangeAddress(ctx context.Context, token common.Address) (common.Address, error) {
	data := make([]byte, 36)
	copy(data[0:4], getExchangeSelector)
	copy(data[16:36], token.Bytes())

	result, err := a.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &a.factory,
		Data: data,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("getExchange call: %w", err)
	}
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("invalid getExchange response length")
	}
	return common.BytesToAddress(result[12:32]), nil
}

// ResolvePool treats a v1 exchange as a two-asset pool: the exchange's ETH
// balance on one side, its token balance on the other. Exactly one of the
// two tokens must be the native asset.
func (a *UniswapV1Adapter) ResolvePool(ctx context.Context, tokenA, tokenB entities.Token, fee entities.FeeTier) (*entities.Pool, error) {
	token := tokenA
	if token.IsNative() {
		token = tokenB
	}
	if token.IsNative() || (!tokenA.IsNative() && !tokenB.IsNative()) {
		return nil, fmt.Errorf("v1 pools pair the native asset with one token")
	}

	exchange, err := a.ExchangeAddress(ctx, token.Address)
	if err != nil {
		return nil, err
	}
	if exchange == ethclient.ZeroAddress {
		return nil, fmt.Errorf("no v1 exchange for %s: %w", token.Address.Hex(), entities.ErrNoPoolFound)
	}

	nativeReserve, err := a.ethClient.NativeBalance(ctx, exchange)
	if err != nil {
		return nil, fmt.Errorf("exchange native reserve: %w", err)
	}
	tokenReserve, err := a.ethClient.TokenBalance(ctx, token.Address, exchange)
	if err != nil {
		return nil, fmt.Errorf("exchange token reserve: %w", err)
	}

	return &entities.Pool{
		Address:   exchange,
		Token0:    entities.ETH,
		Token1:    token,
		Reserve0:  nativeReserve,
		Reserve1:  tokenReserve,
		Fee:       fee,
		Version:   entities.V1,
		UpdatedAt: time.Now().Unix(),
	}, nil
}

// ApprovalTarget is the input-side exchange: it pulls the sold tokens and,
// on token-to-token swaps, performs the ETH hop itself.
func (a *UniswapV1Adapter) ApprovalTarget(route *entities.Route) common.Address {
	return route.Hops[0].Pool.Address
}

// BuildSwapCall packs the exchange call for an order. Swap variants deliver
// to the trader; when the recipient differs the Transfer variants are used.
func (a *UniswapV1Adapter) BuildSwapCall(ctx context.Context, order *entities.TradeOrder) (*entities.SwapCall, error) {
	route := order.Route
	if route == nil || len(route.Hops) == 0 {
		return nil, fmt.Errorf("order has no route")
	}

	exchange := route.Hops[0].Pool.Address
	deadline := big.NewInt(order.Deadline)
	transfer := order.Recipient != order.Trader

	var (
		data  []byte
		value *big.Int
		err   error
	)

	switch {
	case route.TokenIn.IsNative():
		if order.Side == entities.ExactInput {
			value = order.AmountIn
			if transfer {
				data, err = a.exchangeABI.Pack("ethToTokenTransferInput", permissiveMin, deadline, order.Recipient)
			} else {
				data, err = a.exchangeABI.Pack("ethToTokenSwapInput", permissiveMin, deadline)
			}
		} else {
			// The exchange refunds whatever part of the attached value it
			// does not consume.
			value = order.AmountInMax
			if transfer {
				data, err = a.exchangeABI.Pack("ethToTokenTransferOutput", order.AmountOut, deadline, order.Recipient)
			} else {
				data, err = a.exchangeABI.Pack("ethToTokenSwapOutput", order.AmountOut, deadline)
			}
		}

	case route.TokenOut.IsNative():
		if order.Side == entities.ExactInput {
			if transfer {
				data, err = a.exchangeABI.Pack("tokenToEthTransferInput", order.AmountIn, permissiveMin, deadline, order.Recipient)
			} else {
				data, err = a.exchangeABI.Pack("tokenToEthSwapInput", order.AmountIn, permissiveMin, deadline)
			}
		} else {
			if transfer {
				data, err = a.exchangeABI.Pack("tokenToEthTransferOutput", order.AmountOut, order.AmountInMax, deadline, order.Recipient)
			} else {
				data, err = a.exchangeABI.Pack("tokenToEthSwapOutput", order.AmountOut, order.AmountInMax, deadline)
			}
		}

	default:
		outputToken := route.TokenOut.Address
		if order.Side == entities.ExactInput {
			if transfer {
				data, err = a.exchangeABI.Pack("tokenToTokenTransferInput", order.AmountIn, permissiveMin, permissiveMin, deadline, order.Recipient, outputToken)
			} else {
				data, err = a.exchangeABI.Pack("tokenToTokenSwapInput", order.AmountIn, permissiveMin, permissiveMin, deadline, outputToken)
			}
		} else {
			if order.BridgeAllowance == nil {
				return nil, fmt.Errorf("bridged exact-output order missing bridge allowance")
			}
			if transfer {
				data, err = a.exchangeABI.Pack("tokenToTokenTransferOutput", order.AmountOut, order.AmountInMax, order.BridgeAllowance, deadline, order.Recipient, outputToken)
			} else {
				data, err = a.exchangeABI.Pack("tokenToTokenSwapOutput", order.AmountOut, order.AmountInMax, order.BridgeAllowance, deadline, outputToken)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("pack v1 swap: %w", err)
	}

	return &entities.SwapCall{
		To:    exchange,
		Data:  data,
		Value: value,
	}, nil
}

// BuildAddLiquidity packs addLiquidity for a token's exchange. The token
// ceiling follows the current reserve ratio with a small absolute cushion,
// and the attached value is the native amount being deposited.
func (a *UniswapV1Adapter) BuildAddLiquidity(ctx context.Context, token entities.Token, maxNative *big.Int, deadline int64) (*entities.SwapCall, *big.Int, error) {
	pool, err := a.ResolvePool(ctx, entities.ETH, token, entities.FeeTier3000)
	if err != nil {
		return nil, nil, err
	}
	if pool.Reserve0 == nil || pool.Reserve0.Sign() == 0 {
		return nil, nil, fmt.Errorf("exchange has no native reserve to price against: %w", entities.ErrInsufficientLiquidity)
	}

	maxTokens := new(big.Int).Mul(maxNative, pool.Reserve1)
	maxTokens.Div(maxTokens, pool.Reserve0)
	maxTokens.Add(maxTokens, big.NewInt(10))

	data, err := a.exchangeABI.Pack("addLiquidity", big.NewInt(1), maxTokens, big.NewInt(deadline))
	if err != nil {
		return nil, nil, fmt.Errorf("pack addLiquidity: %w", err)
	}

	call := &entities.SwapCall{
		To:    pool.Address,
		Data:  data,
		Value: maxNative,
	}
	return call, maxTokens, nil
}

// BuildRemoveLiquidity packs removeLiquidity, burning pool shares for the
// underlying assets with permissive minimums on both sides.
func (a *UniswapV1Adapter) BuildRemoveLiquidity(ctx context.Context, token entities.Token, liquidity *big.Int, deadline int64) (*entities.SwapCall, error) {
	exchange, err := a.ExchangeAddress(ctx, token.Address)
	if err != nil {
		return nil, err
	}
	if exchange == ethclient.ZeroAddress {
		return nil, fmt.Errorf("no v1 exchange for %s: %w", token.Address.Hex(), entities.ErrNoPoolFound)
	}

	data, err := a.exchangeABI.Pack("removeLiquidity", liquidity, permissiveMin, permissiveMin, big.NewInt(deadline))
	if err != nil {
		return nil, fmt.Errorf("pack removeLiquidity: %w", err)
	}

	return &entities.SwapCall{
		To:   exchange,
		Data: data,
	}, nil
}
