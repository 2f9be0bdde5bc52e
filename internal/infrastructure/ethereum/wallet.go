package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet signs and submits transactions for a single private key. Submissions
// are serialized under a mutex so nonces are assigned in send order.
type Wallet struct {
	client     *Client
	privateKey *ecdsa.PrivateKey
	address    common.Address

	mu        sync.Mutex
	lastNonce int64 // last nonce used by this process, -1 until the first send
}

// NewWallet derives the account address from a hex-encoded private key.
func NewWallet(client *Client, privateKeyHex string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Wallet{
		client:     client,
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		lastNonce:  -1,
	}, nil
}

// Address returns the account address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// nextNonce picks max(pending nonce from chain, last used + 1). The local
// floor keeps back-to-back submissions ordered even when the node has not
// indexed the previous transaction yet.
func (w *Wallet) nextNonce(ctx context.Context) (uint64, error) {
	pending, err := w.client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return 0, fmt.Errorf("pending nonce: %w", err)
	}
	if w.lastNonce >= 0 && uint64(w.lastNonce)+1 > pending {
		return uint64(w.lastNonce) + 1, nil
	}
	return pending, nil
}

// Submit signs a transaction and broadcasts it, returning the hash. A zero
// gas limit means "estimate against the node first".
func (w *Wallet) Submit(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if value == nil {
		value = big.NewInt(0)
	}

	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	if gasLimit == 0 {
		gasLimit, err = w.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  w.address,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
		}
	}

	nonce, err := w.nextNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(w.client.ChainID()), w.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := w.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	w.lastNonce = int64(nonce)
	return signedTx.Hash(), nil
}

// WaitMined blocks until the transaction is included in a block.
func (w *Wallet) WaitMined(ctx context.Context, txHash common.Hash) error {
	_, err := w.client.WaitMined(ctx, txHash)
	return err
}
