package shares

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ksred/shareledger-api/internal/cache"
	"github.com/ksred/shareledger-api/internal/database"
	"github.com/ksred/shareledger-api/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*Service, *cache.MemoryCache, *gorm.DB) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	c := cache.NewMemoryCache()
	return NewService(db, c), c, db
}

func TestCreateShare(t *testing.T) {
	service, c, _ := setupTest(t)
	ctx := context.Background()

	share, err := service.CreateShare(ctx, CreateShareRequest{
		Symbol: "ABC",
		Price:  decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC", share.Symbol)
	assert.Equal(t, "10.00", share.Price.StringFixed(2))
	assert.NotZero(t, share.ID)

	// Created shares are written through to the cache
	cached, err := c.GetShare(ctx, "ABC")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, share.ID, cached.ID)
}

func TestCreateShareConflict(t *testing.T) {
	service, _, _ := setupTest(t)
	ctx := context.Background()

	_, err := service.CreateShare(ctx, CreateShareRequest{Symbol: "ABC", Price: decimal.RequireFromString("10.00")})
	require.NoError(t, err)

	_, err = service.CreateShare(ctx, CreateShareRequest{Symbol: "ABC", Price: decimal.RequireFromString("12.00")})
	assert.ErrorIs(t, err, types.ErrDuplicateShare)
}

func TestCreateShareInvalid(t *testing.T) {
	service, _, _ := setupTest(t)
	ctx := context.Background()

	_, err := service.CreateShare(ctx, CreateShareRequest{Symbol: "  ", Price: decimal.RequireFromString("10.00")})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = service.CreateShare(ctx, CreateShareRequest{Symbol: "NEG", Price: decimal.RequireFromString("-1.00")})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestGetShareNotFound(t *testing.T) {
	service, _, _ := setupTest(t)

	_, err := service.GetShare(context.Background(), "NOPE")
	assert.ErrorIs(t, err, types.ErrShareNotFound)
}

// A cache miss falls back to the database and populates the cache; the next
// read is served from the cache even if the database row moves underneath it.
func TestGetShareCacheAside(t *testing.T) {
	service, c, db := setupTest(t)
	ctx := context.Background()

	created, err := service.CreateShare(ctx, CreateShareRequest{Symbol: "ABC", Price: decimal.RequireFromString("10.00")})
	require.NoError(t, err)

	// Start from a cold cache
	require.NoError(t, c.DeleteShare(ctx, "ABC"))

	got, err := service.GetShare(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	cached, err := c.GetShare(ctx, "ABC")
	require.NoError(t, err)
	require.NotNil(t, cached, "miss should have populated the cache")

	// Move the database row without going through the service; reads keep
	// hitting the cached copy until something overwrites it.
	require.NoError(t, db.Model(&types.Share{}).Where("symbol = ?", "ABC").
		Update("price", decimal.RequireFromString("99.00")).Error)

	again, err := service.GetShare(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, "10.00", again.Price.StringFixed(2))
}

func TestUpdateSharePrice(t *testing.T) {
	service, c, _ := setupTest(t)
	ctx := context.Background()

	_, err := service.CreateShare(ctx, CreateShareRequest{Symbol: "ABC", Price: decimal.RequireFromString("10.00")})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("12.345")
	updated, err := service.UpdateShare(ctx, "ABC", UpdateShareRequest{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "12.35", updated.Price.StringFixed(2), "price is rounded to 2 decimal places")

	cached, err := c.GetShare(ctx, "ABC")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "12.35", cached.Price.StringFixed(2))
}

// Renaming a symbol must evict the old cache key; reading the old symbol
// afterwards misses both cache and store.
func TestUpdateShareRename(t *testing.T) {
	service, c, _ := setupTest(t)
	ctx := context.Background()

	_, err := service.CreateShare(ctx, CreateShareRequest{Symbol: "ABC", Price: decimal.RequireFromString("10.00")})
	require.NoError(t, err)

	updated, err := service.UpdateShare(ctx, "ABC", UpdateShareRequest{Symbol: "XYZ"})
	require.NoError(t, err)
	assert.Equal(t, "XYZ", updated.Symbol)

	old, err := c.GetShare(ctx, "ABC")
	require.NoError(t, err)
	assert.Nil(t, old, "old cache key must be evicted")

	renamed, err := c.GetShare(ctx, "XYZ")
	require.NoError(t, err)
	require.NotNil(t, renamed)

	_, err = service.GetShare(ctx, "ABC")
	assert.ErrorIs(t, err, types.ErrShareNotFound)
}

func TestDeleteShare(t *testing.T) {
	service, c, _ := setupTest(t)
	ctx := context.Background()

	_, err := service.CreateShare(ctx, CreateShareRequest{Symbol: "ABC", Price: decimal.RequireFromString("10.00")})
	require.NoError(t, err)

	require.NoError(t, service.DeleteShare(ctx, "ABC"))

	cached, err := c.GetShare(ctx, "ABC")
	require.NoError(t, err)
	assert.Nil(t, cached)

	_, err = service.GetShare(ctx, "ABC")
	assert.ErrorIs(t, err, types.ErrShareNotFound)

	err = service.DeleteShare(ctx, "ABC")
	assert.ErrorIs(t, err, types.ErrShareNotFound)
}

func TestListShares(t *testing.T) {
	service, _, _ := setupTest(t)
	ctx := context.Background()

	for _, symbol := range []string{"MSFT", "AAPL", "GOOGL"} {
		_, err := service.CreateShare(ctx, CreateShareRequest{Symbol: symbol, Price: decimal.RequireFromString("1.00")})
		require.NoError(t, err)
	}

	shares, err := service.ListShares()
	require.NoError(t, err)
	require.Len(t, shares, 3)
	assert.Equal(t, "AAPL", shares[0].Symbol, "list is ordered by symbol")
}
