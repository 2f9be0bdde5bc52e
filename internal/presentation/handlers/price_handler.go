package handlers

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
)

// PriceHandler serves exchange rates and the cross-version price comparison.
type PriceHandler struct {
	prices *services.PriceService
	tokens *services.TokenService
}

func NewPriceHandler(prices *services.PriceService, tokens *services.TokenService) *PriceHandler {
	return &PriceHandler{prices: prices, tokens: tokens}
}

// PriceResponse reports a token's exchange rate against the native asset.
type PriceResponse struct {
	Token     TokenRef `json:"token"`
	Rate      string   `json:"rate"`    // native units per whole token
	RateWei   string   `json:"rateWei"` // wei per whole token
	UpdatedAt string   `json:"updatedAt"`
}

// GetPrice handles GET /api/v1/price/{token}: the best available rate for
// one whole token, in native units.
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.GetToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondError(w, err)
		return
	}

	rate, err := h.prices.GetExchangeRate(r.Context(), token)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PriceResponse{
		Token:     tokenRef(token),
		Rate:      decimal.NewFromBigInt(rate, -18).String(),
		RateWei:   rate.String(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// VersionPrice is one version's answer in the comparison.
type VersionPrice struct {
	Version   string `json:"version"`
	AmountOut string `json:"amountOut,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PricesResponse reports every configured version's quote for the same swap.
type PricesResponse struct {
	TokenIn  TokenRef       `json:"tokenIn"`
	TokenOut TokenRef       `json:"tokenOut"`
	AmountIn string         `json:"amountIn"`
	Prices   []VersionPrice `json:"prices"`
	Best     string         `json:"best,omitempty"`
}

// GetPrices handles GET /api/v1/prices: the same exact-input swap quoted on
// every configured version side by side. Without an explicit fee parameter
// v3 reports its fee-tier error instead of a price.
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	inRef, outRef, amountStr := q.Get("in"), q.Get("out"), q.Get("amount")
	if inRef == "" || outRef == "" || amountStr == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "in, out and amount are required")
		return
	}

	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount must be a positive integer in base units")
		return
	}

	opts := &services.QuoteOptions{}
	if feeStr := q.Get("fee"); feeStr != "" {
		fee, err := strconv.ParseUint(feeStr, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_fee", "fee must be an integer in millionths of the input")
			return
		}
		opts.FeeTier = entities.FeeTier(fee)
	}

	tokenIn, err := h.tokens.GetToken(r.Context(), inRef)
	if err != nil {
		respondError(w, err)
		return
	}
	tokenOut, err := h.tokens.GetToken(r.Context(), outRef)
	if err != nil {
		respondError(w, err)
		return
	}

	results := h.prices.GetPrices(r.Context(), tokenIn, tokenOut, amount, opts)

	response := PricesResponse{
		TokenIn:  tokenRef(tokenIn),
		TokenOut: tokenRef(tokenOut),
		AmountIn: amount.String(),
		Prices:   make([]VersionPrice, 0, len(results)),
	}

	var best *services.VersionQuote
	for i := range results {
		result := &results[i]
		price := VersionPrice{Version: result.Version.String()}
		if result.Err != nil {
			price.Error = result.Err.Error()
		} else {
			price.AmountOut = result.AmountOut.String()
			if best == nil || result.AmountOut.Cmp(best.AmountOut) > 0 {
				best = result
			}
		}
		response.Prices = append(response.Prices, price)
	}
	if best != nil {
		response.Best = best.Version.String()
	}

	writeJSON(w, http.StatusOK, response)
}
