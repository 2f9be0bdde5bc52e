package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
)

// Cache stores token metadata keyed by address. Only immutable chain data
// belongs here: pool reserves move with every on-chain trade, so quotes
// always read them fresh and never through this layer.
type Cache interface {
	GetToken(ctx context.Context, key string) (*entities.Token, error)
	SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache implements Cache using Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetToken retrieves a cached token. A miss returns (nil, nil).
func (c *RedisCache) GetToken(ctx context.Context, key string) (*entities.Token, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var token entities.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}

	return &token, nil
}

// SetToken caches a token. A zero TTL stores it without expiry; ERC-20
// name, symbol and decimals do not change after deployment.
func (c *RedisCache) SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes a key from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// TokenCacheKey generates a cache key for a token address. Addresses are
// lowercased so checksummed and plain forms hit the same entry.
func TokenCacheKey(address string) string {
	return fmt.Sprintf("token:%s", strings.ToLower(address))
}

// InMemoryCache implements Cache using in-memory storage (for testing/development)
type InMemoryCache struct {
	mu     sync.RWMutex
	tokens map[string]*cachedToken
}

type cachedToken struct {
	token     *entities.Token
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		tokens: make(map[string]*cachedToken),
	}
}

func (c *InMemoryCache) GetToken(ctx context.Context, key string) (*entities.Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.tokens[key]
	if !ok {
		return nil, nil
	}
	if !cached.expiresAt.IsZero() && time.Now().After(cached.expiresAt) {
		return nil, nil
	}
	return cached.token, nil
}

func (c *InMemoryCache) SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached := &cachedToken{token: token}
	if ttl > 0 {
		cached.expiresAt = time.Now().Add(ttl)
	}
	c.tokens[key] = cached
	return nil
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tokens, key)
	return nil
}
