package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
)

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TokenRef identifies a token in responses.
type TokenRef struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

func tokenRef(token entities.Token) TokenRef {
	return TokenRef{Address: token.Address.Hex(), Symbol: token.Symbol}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrExplicitFeeTierRequired):
		writeError(w, http.StatusUnprocessableEntity, "fee_tier_required", err.Error())
	case errors.Is(err, entities.ErrInvalidFeeTier):
		writeError(w, http.StatusUnprocessableEntity, "invalid_fee_tier", err.Error())
	case errors.Is(err, entities.ErrInvalidTokenArgument):
		writeError(w, http.StatusBadRequest, "invalid_token", err.Error())
	case errors.Is(err, entities.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, "insufficient_balance", err.Error())
	case errors.Is(err, entities.ErrNoPoolFound):
		writeError(w, http.StatusNotFound, "no_pool", err.Error())
	case errors.Is(err, entities.ErrInsufficientLiquidity):
		writeError(w, http.StatusConflict, "insufficient_liquidity", err.Error())
	case errors.Is(err, entities.ErrUnsupportedRoute):
		writeError(w, http.StatusNotImplemented, "unsupported_route", err.Error())
	case errors.Is(err, entities.ErrUnsupportedOperation):
		writeError(w, http.StatusNotImplemented, "unsupported_operation", err.Error())
	case errors.Is(err, services.ErrNoWallet):
		writeError(w, http.StatusForbidden, "trading_disabled", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
