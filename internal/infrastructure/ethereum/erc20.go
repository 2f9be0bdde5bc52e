package ethereum

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC-20 function selectors (first 4 bytes of the keccak256 signature hash)
var (
	// balanceOf(address) returns (uint256)
	balanceOfSelector = common.Hex2Bytes("70a08231")
	// allowance(address,address) returns (uint256)
	allowanceSelector = common.Hex2Bytes("dd62ed3e")
	// name() returns (string)
	nameSelector = common.Hex2Bytes("06fdde03")
	// symbol() returns (string)
	symbolSelector = common.Hex2Bytes("95d89b41")
	// decimals() returns (uint8)
	decimalsSelector = common.Hex2Bytes("313ce567")
)

// MaxApproval is the unlimited allowance value (2^256 - 1) granted on approve,
// so one approval covers every later trade through the same spender.
var MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Minimal ERC-20 ABI, only the state-changing call we pack ourselves.
const erc20ABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

var (
	erc20ABIOnce sync.Once
	erc20ABI     abi.ABI
	erc20ABIErr  error
)

func loadERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// ApproveCalldata packs approve(spender, amount).
func ApproveCalldata(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := loadERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return parsed.Pack("approve", spender, amount)
}

// TokenBalance returns the ERC-20 balance of an account.
func (c *Client) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data := make([]byte, 36)
	copy(data[0:4], balanceOfSelector)
	copy(data[16:36], account.Bytes())

	result, err := c.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data})
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}
	if len(result) < 32 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(result[0:32]), nil
}

// Allowance returns how much of owner's tokens the spender may transfer.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data := make([]byte, 68)
	copy(data[0:4], allowanceSelector)
	copy(data[16:36], owner.Bytes())
	copy(data[48:68], spender.Bytes())

	result, err := c.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data})
	if err != nil {
		return nil, fmt.Errorf("allowance call: %w", err)
	}
	if len(result) < 32 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(result[0:32]), nil
}

// TokenMetadata fetches name, symbol and decimals in a single batch.
func (c *Client) TokenMetadata(ctx context.Context, token common.Address) (name, symbol string, decimals uint8, err error) {
	calls := []ethereum.CallMsg{
		{To: &token, Data: nameSelector},
		{To: &token, Data: symbolSelector},
		{To: &token, Data: decimalsSelector},
	}

	results, err := c.Multicall(ctx, calls)
	if err != nil {
		return "", "", 0, fmt.Errorf("token metadata calls: %w", err)
	}

	name = decodeStringResult(results[0])
	symbol = decodeStringResult(results[1])
	if len(results[2]) >= 32 {
		decimals = uint8(new(big.Int).SetBytes(results[2][0:32]).Uint64())
	}
	return name, symbol, decimals, nil
}

// decodeStringResult decodes an ABI string return value. Some early tokens
// (MKR among them) declare name/symbol as bytes32 instead of string; those
// come back as a single zero-padded word.
func decodeStringResult(result []byte) string {
	if len(result) == 32 {
		return string(bytes.TrimRight(result, "\x00"))
	}
	if len(result) < 64 {
		return ""
	}

	offset := new(big.Int).SetBytes(result[0:32]).Uint64()
	if offset+32 > uint64(len(result)) {
		return ""
	}
	length := new(big.Int).SetBytes(result[offset : offset+32]).Uint64()
	if offset+32+length > uint64(len(result)) {
		return ""
	}
	return string(result[offset+32 : offset+32+length])
}
