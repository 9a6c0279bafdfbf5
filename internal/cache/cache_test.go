package cache

import (
	"context"
	"testing"

	"github.com/ksred/shareledger-api/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "share:AAPL", Key(PrefixShare, "AAPL"))
	assert.Equal(t, "portfolio:42", Key(PrefixPortfolio, "42"))
	assert.Equal(t, "user-with-portfolio:7", Key(PrefixUserPortfolio, "7"))
}

func TestMemoryCacheShareRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	missing, err := c.GetShare(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, missing)

	share := &types.Share{
		ID:     3,
		Symbol: "AAPL",
		Price:  decimal.RequireFromString("178.25"),
	}
	require.NoError(t, c.SetShare(ctx, share))

	got, err := c.GetShare(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(3), got.ID)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.True(t, share.Price.Equal(got.Price), "price survived the round trip")

	require.NoError(t, c.DeleteShare(ctx, "AAPL"))
	gone, err := c.GetShare(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// Cached monetary fields must be plain fixed-point numbers, never quoted
// decimal strings.
func TestCachedPriceIsPlainNumber(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	share := &types.Share{
		ID:     1,
		Symbol: "ABC",
		Price:  decimal.RequireFromString("10.50"),
	}
	require.NoError(t, c.SetShare(ctx, share))

	c.mu.RLock()
	raw := string(c.entries[Key(PrefixShare, "ABC")])
	c.mu.RUnlock()

	assert.Contains(t, raw, `"price":10.5`)
	assert.NotContains(t, raw, `"price":"`)
}

func TestMemoryCachePortfolioRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	snapshot := &types.PortfolioSnapshot{
		ID:        9,
		OwnerName: "Alice",
		Shares: []types.SharePosition{
			{Symbol: "ABC", Price: decimal.RequireFromString("10.00"), Quantity: 5, Total: decimal.RequireFromString("50.00")},
		},
		TotalValue: decimal.RequireFromString("50.00"),
	}
	require.NoError(t, c.SetPortfolio(ctx, 42, snapshot))

	got, err := c.GetPortfolio(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.OwnerName)
	require.Len(t, got.Shares, 1)
	assert.True(t, got.TotalValue.Equal(snapshot.TotalValue))

	// Other ids stay independent
	other, err := c.GetPortfolio(ctx, 43)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestMemoryCacheUserWithPortfolio(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	user := &types.UserWithPortfolio{
		ID:    7,
		Email: "alice@example.com",
		Name:  "Alice",
		Portfolio: types.PortfolioSnapshot{
			ID:         9,
			OwnerName:  "Alice",
			Shares:     []types.SharePosition{},
			TotalValue: decimal.Zero,
		},
	}
	require.NoError(t, c.SetUserWithPortfolio(ctx, 7, user))

	got, err := c.GetUserWithPortfolio(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice@example.com", got.Email)

	require.NoError(t, c.DeleteUserWithPortfolio(ctx, 7))
	gone, err := c.GetUserWithPortfolio(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
