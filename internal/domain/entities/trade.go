package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TradeSide distinguishes which side of a swap is fixed.
type TradeSide uint8

const (
	// ExactInput fixes the amount sent; the output is whatever the pool
	// returns at execution time.
	ExactInput TradeSide = iota
	// ExactOutput fixes the amount received; the input is bounded by a
	// slippage ceiling.
	ExactOutput
)

func (s TradeSide) String() string {
	if s == ExactOutput {
		return "exact_output"
	}
	return "exact_input"
}

func (s TradeSide) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TradeOrder is a fully resolved swap intent: route, amounts, bounds and
// expiry, ready to be packed into a version-specific contract call.
type TradeOrder struct {
	Version Version   `json:"version"`
	Side    TradeSide `json:"side"`
	Route   *Route    `json:"route"`

	// AmountIn is the fixed quantity on exact-input trades and the quoted
	// cost on exact-output trades. AmountOut is the mirror.
	AmountIn  *big.Int `json:"amountIn"`
	AmountOut *big.Int `json:"amountOut"`

	// AmountInMax bounds the input on exact-output trades; nil otherwise.
	AmountInMax *big.Int `json:"amountInMax,omitempty"`

	// BridgeAllowance bounds the native leg of a bridged exact-output
	// trade, already inflated by the 20% safety margin; nil otherwise.
	BridgeAllowance *big.Int `json:"bridgeAllowance,omitempty"`

	// Trader is the account executing the swap; Recipient is who receives
	// the output. They differ only when the caller asked for a third-party
	// recipient, which selects the transfer variants on v1 exchanges.
	Trader    common.Address `json:"trader"`
	Recipient common.Address `json:"recipient"`

	Deadline      int64 `json:"deadline"` // unix seconds
	FeeOnTransfer bool  `json:"feeOnTransfer,omitempty"`
}

// SwapCall is a packed contract invocation: target, calldata and the native
// value to attach. Signing and submission happen elsewhere.
type SwapCall struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	// GasLimit of zero means the submitter should estimate.
	GasLimit uint64
}

// TradeReceipt reports a submitted trade. The hash is an opaque handle;
// the engine does not wait for confirmation.
type TradeReceipt struct {
	TxHash      common.Hash    `json:"txHash"`
	Version     Version        `json:"version"`
	Side        TradeSide      `json:"side"`
	AmountIn    *big.Int       `json:"amountIn"`
	AmountOut   *big.Int       `json:"amountOut"`
	AmountInMax *big.Int       `json:"amountInMax,omitempty"`
	Recipient   common.Address `json:"recipient"`
	Deadline    int64          `json:"deadline"`
}
