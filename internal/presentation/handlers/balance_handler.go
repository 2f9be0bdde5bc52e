package handlers

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/antibagr/uniswap-go/internal/domain/services"
)

// BalanceHandler reads native and ERC-20 balances for arbitrary accounts.
type BalanceHandler struct {
	tokens *services.TokenService
	chain  services.ChainReader
}

func NewBalanceHandler(tokens *services.TokenService, chain services.ChainReader) *BalanceHandler {
	return &BalanceHandler{tokens: tokens, chain: chain}
}

// BalanceResponse reports one account's holding of one token.
type BalanceResponse struct {
	Token      TokenRef `json:"token"`
	Address    string   `json:"address"`
	Balance    string   `json:"balance"`    // token units
	BalanceRaw string   `json:"balanceRaw"` // base units
}

// GetBalance handles GET /api/v1/balance?address=&token=: the account's
// holding of the token, defaulting to the native asset.
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	addrStr := q.Get("address")
	if addrStr == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "address is required")
		return
	}
	if !common.IsHexAddress(addrStr) {
		writeError(w, http.StatusBadRequest, "invalid_address", "address must be a hex account address")
		return
	}
	account := common.HexToAddress(addrStr)

	ref := q.Get("token")
	if ref == "" {
		ref = "ETH"
	}
	token, err := h.tokens.GetToken(r.Context(), ref)
	if err != nil {
		respondError(w, err)
		return
	}

	var balance *big.Int
	if token.IsNative() {
		balance, err = h.chain.NativeBalance(r.Context(), account)
	} else {
		balance, err = h.chain.TokenBalance(r.Context(), token.Address, account)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		Token:      tokenRef(token),
		Address:    account.Hex(),
		Balance:    decimal.NewFromBigInt(balance, -int32(token.Decimals)).String(),
		BalanceRaw: balance.String(),
	})
}
