package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
)

// PriceService compares quotes for the same swap across several protocol
// versions. Each Exchange stays bound to its own version; the service only
// fans the question out and picks a winner.
type PriceService struct {
	exchanges []*Exchange
	logger    *zap.Logger
}

func NewPriceService(exchanges []*Exchange, logger *zap.Logger) *PriceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceService{
		exchanges: exchanges,
		logger:    logger,
	}
}

// VersionQuote is one version's answer in a comparison. Versions that
// cannot serve the request carry their error instead of an amount.
type VersionQuote struct {
	Version   entities.Version
	AmountOut *big.Int
	Quote     *entities.Quote
	Err       error
}

// GetPrices quotes the swap on every configured version concurrently. The
// same options go to each version, so a request without an explicit fee
// tier excludes v3 from the comparison; pass the 0.30% tier to include it.
func (s *PriceService) GetPrices(ctx context.Context, tokenIn, tokenOut entities.Token, amountIn *big.Int, opts *QuoteOptions) []VersionQuote {
	results := make([]VersionQuote, len(s.exchanges))
	var wg sync.WaitGroup

	for i, ex := range s.exchanges {
		wg.Add(1)
		go func(idx int, ex *Exchange) {
			defer wg.Done()

			quote, err := ex.QuoteExactInput(ctx, tokenIn, tokenOut, amountIn, opts)
			if err != nil {
				results[idx] = VersionQuote{Version: ex.Version(), Err: err}
				return
			}
			results[idx] = VersionQuote{
				Version:   ex.Version(),
				AmountOut: quote.AmountOut,
				Quote:     quote,
			}
		}(i, ex)
	}

	wg.Wait()
	return results
}

// GetBestPrice returns the quote with the highest output among the versions
// that could price the swap. The winning quote's Sources field lists every
// competing version's output for display.
func (s *PriceService) GetBestPrice(ctx context.Context, tokenIn, tokenOut entities.Token, amountIn *big.Int, opts *QuoteOptions) (*entities.Quote, error) {
	results := s.GetPrices(ctx, tokenIn, tokenOut, amountIn, opts)

	sources := make(map[entities.Version]string, len(results))
	var best *VersionQuote
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			s.logger.Debug("version skipped",
				zap.String("version", r.Version.String()),
				zap.Error(r.Err))
			continue
		}
		sources[r.Version] = r.AmountOut.String()
		if best == nil || r.AmountOut.Cmp(best.AmountOut) > 0 {
			best = r
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no version could price %s/%s", tokenIn.Symbol, tokenOut.Symbol)
	}

	best.Quote.Sources = sources
	return best.Quote, nil
}

// GetExchangeRate prices one whole token in native wei using the best
// available version. The native asset trivially rates at 1e18.
func (s *PriceService) GetExchangeRate(ctx context.Context, token entities.Token) (*big.Int, error) {
	if token.IsNative() {
		return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), nil
	}

	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(token.Decimals)), nil)
	quote, err := s.GetBestPrice(ctx, token, entities.ETH, one, nil)
	if err != nil {
		return nil, err
	}
	return quote.AmountOut, nil
}
