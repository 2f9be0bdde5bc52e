package handlers

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
)

// TradeHandler executes swaps through the configured exchanges. It refuses
// everything unless trading was enabled at startup with a funded wallet.
type TradeHandler struct {
	exchanges map[entities.Version]*services.Exchange
	tokens    *services.TokenService
	enabled   bool
}

func NewTradeHandler(exchanges map[entities.Version]*services.Exchange, tokens *services.TokenService, enabled bool) *TradeHandler {
	return &TradeHandler{exchanges: exchanges, tokens: tokens, enabled: enabled}
}

type TradeRequest struct {
	TokenIn       string   `json:"tokenIn"`
	TokenOut      string   `json:"tokenOut"`
	Amount        string   `json:"amount"`
	Side          string   `json:"side"`
	Version       string   `json:"version"`
	Fee           uint32   `json:"fee"`
	Slippage      *float64 `json:"slippage"`
	Recipient     string   `json:"recipient"`
	FeeOnTransfer bool     `json:"feeOnTransfer"`
	Path          []string `json:"path"`
}

type TradeResponse struct {
	TxHash      string `json:"txHash"`
	Version     string `json:"version"`
	Side        string `json:"side"`
	AmountIn    string `json:"amountIn"`
	AmountOut   string `json:"amountOut"`
	AmountInMax string `json:"amountInMax,omitempty"`
	Recipient   string `json:"recipient"`
	Deadline    int64  `json:"deadline"`
}

// ExecuteTrade handles POST /api/v1/trade: swap on the requested version.
// The response reports the submitted transaction; callers watch the hash
// themselves.
func (h *TradeHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeError(w, http.StatusForbidden, "trading_disabled", "server is running without a wallet")
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be a JSON trade order")
		return
	}

	if req.TokenIn == "" || req.TokenOut == "" || req.Amount == "" || req.Version == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "tokenIn, tokenOut, amount and version are required")
		return
	}

	version, err := entities.ParseVersion(req.Version)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_version", err.Error())
		return
	}
	exchange, ok := h.exchanges[version]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_version", "version "+version.String()+" is not configured")
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount must be a positive integer in base units")
		return
	}

	tokenIn, err := h.tokens.GetToken(r.Context(), req.TokenIn)
	if err != nil {
		respondError(w, err)
		return
	}
	tokenOut, err := h.tokens.GetToken(r.Context(), req.TokenOut)
	if err != nil {
		respondError(w, err)
		return
	}

	opts := &services.TradeOptions{
		FeeTier:       entities.FeeTier(req.Fee),
		Slippage:      req.Slippage,
		FeeOnTransfer: req.FeeOnTransfer,
	}
	if req.Recipient != "" {
		if !common.IsHexAddress(req.Recipient) {
			writeError(w, http.StatusBadRequest, "invalid_recipient", "recipient must be a hex address")
			return
		}
		opts.Recipient = common.HexToAddress(req.Recipient)
	}
	for _, hop := range req.Path {
		if !common.IsHexAddress(hop) {
			writeError(w, http.StatusBadRequest, "invalid_path", "path entries must be hex addresses")
			return
		}
		opts.Path = append(opts.Path, common.HexToAddress(hop))
	}

	var receipt *entities.TradeReceipt
	switch req.Side {
	case "", "in", entities.ExactInput.String():
		receipt, err = exchange.MakeTrade(r.Context(), tokenIn, tokenOut, amount, opts)
	case "out", entities.ExactOutput.String():
		receipt, err = exchange.MakeTradeForExactOutput(r.Context(), tokenIn, tokenOut, amount, opts)
	default:
		writeError(w, http.StatusBadRequest, "invalid_side", "side must be exact_input or exact_output")
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	response := TradeResponse{
		TxHash:    receipt.TxHash.Hex(),
		Version:   receipt.Version.String(),
		Side:      receipt.Side.String(),
		AmountIn:  receipt.AmountIn.String(),
		AmountOut: receipt.AmountOut.String(),
		Recipient: receipt.Recipient.Hex(),
		Deadline:  receipt.Deadline,
	}
	if receipt.AmountInMax != nil {
		response.AmountInMax = receipt.AmountInMax.String()
	}
	writeJSON(w, http.StatusOK, response)
}
