package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/infrastructure/cache"
)

// TokenService resolves token references to full records. References are
// either registry symbols ("DAI") or hex addresses; addresses the registry
// has not seen are loaded from chain once and cached without expiry, since
// ERC-20 metadata is immutable.
type TokenService struct {
	registry *entities.TokenRegistry
	chain    MetadataReader
	cache    cache.Cache
	logger   *zap.Logger
}

func NewTokenService(registry *entities.TokenRegistry, chain MetadataReader, c cache.Cache, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		registry: registry,
		chain:    chain,
		cache:    c,
		logger:   logger,
	}
}

// GetToken resolves ref. The zero address and the "ETH" symbol both name
// the native asset.
func (s *TokenService) GetToken(ctx context.Context, ref string) (entities.Token, error) {
	if !common.IsHexAddress(ref) {
		if token, ok := s.registry.GetBySymbol(ref); ok {
			return token, nil
		}
		return entities.Token{}, fmt.Errorf("unknown token %q: %w", ref, entities.ErrInvalidTokenArgument)
	}

	addr := common.HexToAddress(ref)
	if addr == (common.Address{}) {
		return entities.ETH, nil
	}
	if token, ok := s.registry.GetByAddress(addr); ok {
		return token, nil
	}

	key := cache.TokenCacheKey(addr.Hex())
	if s.cache != nil {
		if cached, err := s.cache.GetToken(ctx, key); err == nil && cached != nil {
			s.registry.Register(*cached)
			return *cached, nil
		}
	}

	name, symbol, decimals, err := s.chain.TokenMetadata(ctx, addr)
	if err != nil {
		return entities.Token{}, fmt.Errorf("load token %s: %w", addr.Hex(), err)
	}
	token := entities.Token{
		Address:  addr,
		Symbol:   symbol,
		Name:     name,
		Decimals: decimals,
	}

	if s.cache != nil {
		if err := s.cache.SetToken(ctx, key, &token, 0); err != nil {
			s.logger.Warn("token cache write failed",
				zap.String("token", addr.Hex()),
				zap.Error(err))
		}
	}
	s.registry.Register(token)

	s.logger.Debug("token loaded from chain",
		zap.String("address", addr.Hex()),
		zap.String("symbol", symbol))
	return token, nil
}

// KnownTokens lists every token the registry currently holds.
func (s *TokenService) KnownTokens() []entities.Token {
	return s.registry.GetAll()
}
