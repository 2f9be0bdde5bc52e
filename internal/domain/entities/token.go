package entities

import "github.com/ethereum/go-ethereum/common"

type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
}

// IsNative reports whether the token is the chain's native asset. The engine
// addresses native ETH with the zero address, the same pseudo-address the v1
// exchanges use.
func (t Token) IsNative() bool {
	return t.Address == (common.Address{})
}

// ETH is the native asset pseudo-token. Not an ERC-20, but every pricing and
// trading path treats it as one side of a pool.
var ETH = Token{
	Address:  common.Address{},
	Symbol:   "ETH",
	Name:     "Ether",
	Decimals: 18,
}

// WETH is the canonical Wrapped Ether token on Ethereum mainnet
var WETH = Token{
	Address:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	Symbol:   "WETH",
	Name:     "Wrapped Ether",
	Decimals: 18,
}

// USDC is USD Coin on Ethereum mainnet
var USDC = Token{
	Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
	Symbol:   "USDC",
	Name:     "USD Coin",
	Decimals: 6,
}

// DAI is Dai Stablecoin on Ethereum mainnet
var DAI = Token{
	Address:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
	Symbol:   "DAI",
	Name:     "Dai Stablecoin",
	Decimals: 18,
}

// WBTC is Wrapped Bitcoin on Ethereum mainnet
var WBTC = Token{
	Address:  common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"),
	Symbol:   "WBTC",
	Name:     "Wrapped BTC",
	Decimals: 8,
}

// UNI is the Uniswap governance token on Ethereum mainnet
var UNI = Token{
	Address:  common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"),
	Symbol:   "UNI",
	Name:     "Uniswap",
	Decimals: 18,
}

// BAT is Basic Attention Token on Ethereum mainnet
var BAT = Token{
	Address:  common.HexToAddress("0x0D8775F648430679A709E98d2b0Cb6250d2887EF"),
	Symbol:   "BAT",
	Name:     "Basic Attention Token",
	Decimals: 18,
}
