package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ksred/shareledger-api/internal/types"
	"github.com/redis/go-redis/v9"
)

// Redis-backed cache. Values are stored as JSON with a TTL; expiry is a
// safety net only, since every committed mutation overwrites its entries.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *RedisCache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s for cache: %w", key, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache) GetShare(ctx context.Context, symbol string) (*types.Share, error) {
	var share types.Share
	ok, err := c.get(ctx, Key(PrefixShare, symbol), &share)
	if err != nil || !ok {
		return nil, err
	}
	return &share, nil
}

func (c *RedisCache) SetShare(ctx context.Context, share *types.Share) error {
	return c.set(ctx, Key(PrefixShare, share.Symbol), share)
}

func (c *RedisCache) DeleteShare(ctx context.Context, symbol string) error {
	return c.client.Del(ctx, Key(PrefixShare, symbol)).Err()
}

func (c *RedisCache) GetPortfolio(ctx context.Context, userID uint) (*types.PortfolioSnapshot, error) {
	var snapshot types.PortfolioSnapshot
	ok, err := c.get(ctx, Key(PrefixPortfolio, formatID(userID)), &snapshot)
	if err != nil || !ok {
		return nil, err
	}
	return &snapshot, nil
}

func (c *RedisCache) SetPortfolio(ctx context.Context, userID uint, snapshot *types.PortfolioSnapshot) error {
	return c.set(ctx, Key(PrefixPortfolio, formatID(userID)), snapshot)
}

func (c *RedisCache) GetUserWithPortfolio(ctx context.Context, userID uint) (*types.UserWithPortfolio, error) {
	var user types.UserWithPortfolio
	ok, err := c.get(ctx, Key(PrefixUserPortfolio, formatID(userID)), &user)
	if err != nil || !ok {
		return nil, err
	}
	return &user, nil
}

func (c *RedisCache) SetUserWithPortfolio(ctx context.Context, userID uint, user *types.UserWithPortfolio) error {
	return c.set(ctx, Key(PrefixUserPortfolio, formatID(userID)), user)
}

func (c *RedisCache) DeleteUserWithPortfolio(ctx context.Context, userID uint) error {
	return c.client.Del(ctx, Key(PrefixUserPortfolio, formatID(userID))).Err()
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
