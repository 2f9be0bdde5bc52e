package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
)

// TokenHandler serves the token registry.
type TokenHandler struct {
	tokens *services.TokenService
}

func NewTokenHandler(tokens *services.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type TokenResponse struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
	Native   bool   `json:"native,omitempty"`
}

type TokenListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
	Count  int             `json:"count"`
}

func tokenResponse(token entities.Token) TokenResponse {
	return TokenResponse{
		Address:  token.Address.Hex(),
		Symbol:   token.Symbol,
		Name:     token.Name,
		Decimals: token.Decimals,
		Native:   token.IsNative(),
	}
}

// GetToken handles GET /api/v1/tokens/{ref}: look up a token by address or
// symbol. Symbols nobody registered are a missing resource here, not a bad
// argument.
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.GetToken(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		if errors.Is(err, entities.ErrInvalidTokenArgument) {
			writeError(w, http.StatusNotFound, "token_not_found", err.Error())
			return
		}
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse(token))
}

// ListTokens handles GET /api/v1/tokens: every token in the registry.
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	known := h.tokens.KnownTokens()

	response := TokenListResponse{
		Tokens: make([]TokenResponse, 0, len(known)),
		Count:  len(known),
	}
	for _, token := range known {
		response.Tokens = append(response.Tokens, tokenResponse(token))
	}

	writeJSON(w, http.StatusOK, response)
}
