package cache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ksred/shareledger-api/internal/types"
)

// MemoryCache is an in-process Cache used in tests and as a fallback when no
// Redis is configured. Values go through the same JSON round-trip as the
// Redis implementation so serialization behaviour is identical.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]byte),
	}
}

func (c *MemoryCache) get(key string, out interface{}) (bool, error) {
	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryCache) set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = data
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *MemoryCache) GetShare(_ context.Context, symbol string) (*types.Share, error) {
	var share types.Share
	ok, err := c.get(Key(PrefixShare, symbol), &share)
	if err != nil || !ok {
		return nil, err
	}
	return &share, nil
}

func (c *MemoryCache) SetShare(_ context.Context, share *types.Share) error {
	return c.set(Key(PrefixShare, share.Symbol), share)
}

func (c *MemoryCache) DeleteShare(_ context.Context, symbol string) error {
	c.delete(Key(PrefixShare, symbol))
	return nil
}

func (c *MemoryCache) GetPortfolio(_ context.Context, userID uint) (*types.PortfolioSnapshot, error) {
	var snapshot types.PortfolioSnapshot
	ok, err := c.get(Key(PrefixPortfolio, formatID(userID)), &snapshot)
	if err != nil || !ok {
		return nil, err
	}
	return &snapshot, nil
}

func (c *MemoryCache) SetPortfolio(_ context.Context, userID uint, snapshot *types.PortfolioSnapshot) error {
	return c.set(Key(PrefixPortfolio, formatID(userID)), snapshot)
}

func (c *MemoryCache) GetUserWithPortfolio(_ context.Context, userID uint) (*types.UserWithPortfolio, error) {
	var user types.UserWithPortfolio
	ok, err := c.get(Key(PrefixUserPortfolio, formatID(userID)), &user)
	if err != nil || !ok {
		return nil, err
	}
	return &user, nil
}

func (c *MemoryCache) SetUserWithPortfolio(_ context.Context, userID uint, user *types.UserWithPortfolio) error {
	return c.set(Key(PrefixUserPortfolio, formatID(userID)), user)
}

func (c *MemoryCache) DeleteUserWithPortfolio(_ context.Context, userID uint) error {
	c.delete(Key(PrefixUserPortfolio, formatID(userID)))
	return nil
}
