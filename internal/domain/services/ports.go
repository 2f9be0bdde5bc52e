package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader covers the read-only chain access the services need beyond
// what the protocol adapters do themselves. Implemented by ethereum.Client.
type ChainReader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// TransactionSubmitter signs and broadcasts transactions for one account.
// Implemented by ethereum.Wallet. An Exchange without one is read-only:
// pricing works, trading returns an error.
type TransactionSubmitter interface {
	Address() common.Address
	Submit(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64) (common.Hash, error)
	WaitMined(ctx context.Context, txHash common.Hash) error
}

// MetadataReader loads ERC-20 metadata for tokens the registry has not seen.
// Implemented by ethereum.Client.
type MetadataReader interface {
	TokenMetadata(ctx context.Context, token common.Address) (name, symbol string, decimals uint8, err error)
}
