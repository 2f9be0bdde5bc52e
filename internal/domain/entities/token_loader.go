package entities

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// TokenConfig represents token configuration from JSON
type TokenConfig struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// TokensConfig represents the tokens.json structure
type TokensConfig struct {
	Tokens []TokenConfig `json:"tokens"`
}

// TokenRegistry holds known tokens indexed by address and symbol. Symbols
// are matched case-insensitively. Safe for concurrent use; tokens discovered
// on chain are registered while lookups run.
type TokenRegistry struct {
	mu        sync.RWMutex
	byAddress map[common.Address]Token
	bySymbol  map[string]Token
	all       []Token
}

// NewTokenRegistry creates a new token registry
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{
		byAddress: make(map[common.Address]Token),
		bySymbol:  make(map[string]Token),
		all:       make([]Token, 0),
	}
}

// LoadFromFile loads tokens from a JSON config file
func (r *TokenRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read token config: %w", err)
	}

	var config TokensConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse token config: %w", err)
	}

	for _, tc := range config.Tokens {
		token := Token{
			Address:  common.HexToAddress(tc.Address),
			Symbol:   tc.Symbol,
			Name:     tc.Name,
			Decimals: tc.Decimals,
		}
		r.Register(token)
	}

	return nil
}

// Register adds a token to the registry
func (r *TokenRegistry) Register(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAddress[token.Address] = token
	r.bySymbol[strings.ToUpper(token.Symbol)] = token
	r.all = append(r.all, token)
}

// GetByAddress returns a token by its address
func (r *TokenRegistry) GetByAddress(addr common.Address) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.byAddress[addr]
	return token, ok
}

// GetBySymbol returns a token by its symbol
func (r *TokenRegistry) GetBySymbol(symbol string) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.bySymbol[strings.ToUpper(symbol)]
	return token, ok
}

// GetAll returns all registered tokens
func (r *TokenRegistry) GetAll() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Token, len(r.all))
	copy(out, r.all)
	return out
}

// Count returns the number of registered tokens
func (r *TokenRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// MainnetRegistry returns the default token set for Ethereum mainnet.
func MainnetRegistry() *TokenRegistry {
	r := NewTokenRegistry()
	r.Register(ETH)
	r.Register(WETH)
	r.Register(DAI)
	r.Register(BAT)
	r.Register(WBTC)
	r.Register(UNI)
	r.Register(USDC)
	return r
}

// ArbitrumRegistry returns the default token set for Arbitrum One.
func ArbitrumRegistry() *TokenRegistry {
	r := NewTokenRegistry()
	r.Register(ETH)
	r.Register(Token{
		Address:  common.HexToAddress("0x82af49447d8a07e3bd95bd0d56f35241523fbab1"),
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		Decimals: 18,
	})
	r.Register(Token{
		Address:  common.HexToAddress("0xda10009cbd5d07dd0cecc66161fc93d7c9000da1"),
		Symbol:   "DAI",
		Name:     "Dai Stablecoin",
		Decimals: 18,
	})
	r.Register(Token{
		Address:  common.HexToAddress("0xff970a61a04b1ca14834a43f5de4533ebddb5cc8"),
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
	})
	r.Register(Token{
		Address:  common.HexToAddress("0xfa7f8980b0f1e64a2062791cc3b0871572f1f7f0"),
		Symbol:   "UNI",
		Name:     "Uniswap",
		Decimals: 18,
	})
	return r
}

// RegistryForNetwork maps a network name to its default registry.
func RegistryForNetwork(name string) (*TokenRegistry, error) {
	switch strings.ToLower(name) {
	case "mainnet", "ethereum":
		return MainnetRegistry(), nil
	case "arbitrum":
		return ArbitrumRegistry(), nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}

// DefaultRegistry returns a registry with hardcoded default tokens
// Use this as fallback if config file is not available
func DefaultRegistry() *TokenRegistry {
	return MainnetRegistry()
}
