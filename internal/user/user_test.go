package user

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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*Service, *cache.MemoryCache, *gorm.DB) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	c := cache.NewMemoryCache()
	return NewService(db, c), c, db
}

func TestCreateUser(t *testing.T) {
	service, _, db := setupTest(t)

	created, err := service.Create("alice@example.com", "Alice", "secret-password")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	// Password is stored hashed
	assert.NotEqual(t, "secret-password", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("secret-password")))

	// The portfolio is created with the user
	var portfolio types.Portfolio
	require.NoError(t, db.Where("user_id = ?", created.ID).First(&portfolio).Error)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	service, _, _ := setupTest(t)

	_, err := service.Create("alice@example.com", "Alice", "secret-password")
	require.NoError(t, err)

	_, err = service.Create("alice@example.com", "Alice Again", "other-password")
	assert.ErrorIs(t, err, types.ErrDuplicateUser)
}

func TestGetUserWithPortfolio(t *testing.T) {
	service, c, db := setupTest(t)
	ctx := context.Background()

	created, err := service.Create("alice@example.com", "Alice", "secret-password")
	require.NoError(t, err)

	share := &types.Share{Symbol: "ABC", Price: decimal.RequireFromString("10.00")}
	require.NoError(t, db.Create(share).Error)

	var portfolio types.Portfolio
	require.NoError(t, db.Where("user_id = ?", created.ID).First(&portfolio).Error)
	require.NoError(t, db.Create(&types.PortfolioShare{
		PortfolioID: portfolio.ID,
		ShareID:     share.ID,
		Quantity:    5,
	}).Error)

	result, err := service.GetUserWithPortfolio(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", result.Email)
	assert.Equal(t, "Alice", result.Portfolio.OwnerName)
	require.Len(t, result.Portfolio.Shares, 1)
	assert.Equal(t, "50.00", result.Portfolio.TotalValue.StringFixed(2))

	// The read populated the cache; subsequent reads are served from it
	cached, err := c.GetUserWithPortfolio(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)

	require.NoError(t, db.Model(&types.PortfolioShare{}).
		Where("portfolio_id = ?", portfolio.ID).
		Update("quantity", 99).Error)

	again, err := service.GetUserWithPortfolio(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", again.Portfolio.TotalValue.StringFixed(2),
		"served from cache until a mutation overwrites it")
}

func TestGetUserWithPortfolioUnknownUser(t *testing.T) {
	service, _, _ := setupTest(t)

	_, err := service.GetUserWithPortfolio(context.Background(), 9999)
	assert.ErrorIs(t, err, types.ErrInvalidUserOrPortfolio)
}
