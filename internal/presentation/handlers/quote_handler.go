package handlers

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
)

// QuoteHandler prices swaps through one protocol version per request.
type QuoteHandler struct {
	exchanges map[entities.Version]*services.Exchange
	tokens    *services.TokenService
}

// NewQuoteHandler creates a quote handler over the configured exchanges.
func NewQuoteHandler(exchanges map[entities.Version]*services.Exchange, tokens *services.TokenService) *QuoteHandler {
	return &QuoteHandler{exchanges: exchanges, tokens: tokens}
}

// QuoteResponse reports a priced swap over one resolved route.
type QuoteResponse struct {
	Version     string     `json:"version"`
	Side        string     `json:"side"`
	TokenIn     TokenRef   `json:"tokenIn"`
	TokenOut    TokenRef   `json:"tokenOut"`
	AmountIn    string     `json:"amountIn"`
	AmountOut   string     `json:"amountOut"`
	Route       []RouteHop `json:"route"`
	PriceImpact string     `json:"priceImpactBps"`
	GasEstimate uint64     `json:"gasEstimate"`
}

// RouteHop describes one pool crossing of the route.
type RouteHop struct {
	Pool     string `json:"pool"`
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	Fee      uint32 `json:"fee"`
}

// GetQuote handles GET /api/v1/quote. Query parameters: in, out (symbol or
// address), amount (base units), version (v1/v2/v3), side (exact_input
// default), fee (millionths, required on v3).
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	inRef, outRef, amountStr := q.Get("in"), q.Get("out"), q.Get("amount")
	if inRef == "" || outRef == "" || amountStr == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "in, out and amount are required")
		return
	}

	exchange, ok := h.exchangeFor(q.Get("version"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_version", "version is required and must be one of the configured v1/v2/v3")
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

	var quote *entities.Quote
	side := q.Get("side")
	switch side {
	case "", "in", "exact_input":
		side = entities.ExactInput.String()
		quote, err = exchange.QuoteExactInput(r.Context(), tokenIn, tokenOut, amount, opts)
	case "out", "exact_output":
		side = entities.ExactOutput.String()
		quote, err = exchange.QuoteExactOutput(r.Context(), tokenIn, tokenOut, amount, opts)
	default:
		writeError(w, http.StatusBadRequest, "invalid_side", "side must be exact_input or exact_output")
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, buildQuoteResponse(exchange.Version(), side, quote))
}

func (h *QuoteHandler) exchangeFor(versionStr string) (*services.Exchange, bool) {
	if versionStr == "" {
		return nil, false
	}
	version, err := entities.ParseVersion(versionStr)
	if err != nil {
		return nil, false
	}
	exchange, ok := h.exchanges[version]
	return exchange, ok
}

func buildQuoteResponse(version entities.Version, side string, quote *entities.Quote) QuoteResponse {
	hops := make([]RouteHop, 0, len(quote.Route.Hops))
	for _, hop := range quote.Route.Hops {
		hops = append(hops, RouteHop{
			Pool:     hop.Pool.Address.Hex(),
			TokenIn:  hop.TokenIn.Hex(),
			TokenOut: hop.TokenOut.Hex(),
			Fee:      uint32(hop.Pool.Fee),
		})
	}

	impact := "0"
	if quote.PriceImpact != nil {
		impact = quote.PriceImpact.String()
	}

	return QuoteResponse{
		Version:     version.String(),
		Side:        side,
		TokenIn:     tokenRef(quote.TokenIn),
		TokenOut:    tokenRef(quote.TokenOut),
		AmountIn:    quote.AmountIn.String(),
		AmountOut:   quote.AmountOut.String(),
		Route:       hops,
		PriceImpact: impact,
		GasEstimate: quote.GasEstimate,
	}
}
