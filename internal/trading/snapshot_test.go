package trading

import (
	"path/filepath"
	"testing"

	"github.com/ksred/shareledger-api/internal/database"
	"github.com/ksred/shareledger-api/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSnapshotDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return db
}

func seedHolding(t *testing.T, db *gorm.DB, portfolioID uint, symbol, price string, quantity int64) {
	t.Helper()

	share := &types.Share{Symbol: symbol, Price: decimal.RequireFromString(price)}
	require.NoError(t, db.Create(share).Error)
	require.NoError(t, db.Create(&types.PortfolioShare{
		PortfolioID: portfolioID,
		ShareID:     share.ID,
		Quantity:    quantity,
	}).Error)
}

func TestBuildSnapshot(t *testing.T) {
	db := setupSnapshotDB(t)

	portfolio := &types.Portfolio{UserID: 1}
	require.NoError(t, db.Create(portfolio).Error)

	seedHolding(t, db, portfolio.ID, "BBB", "10.00", 5)
	seedHolding(t, db, portfolio.ID, "AAA", "3.50", 2)
	seedHolding(t, db, portfolio.ID, "ZZZ", "99.00", 0) // excluded

	snapshot, err := BuildSnapshotTx(db, portfolio.ID, "Alice")
	require.NoError(t, err)

	assert.Equal(t, portfolio.ID, snapshot.ID)
	assert.Equal(t, "Alice", snapshot.OwnerName)
	require.Len(t, snapshot.Shares, 2, "zero-quantity holdings drop out")

	// Ordered by symbol
	assert.Equal(t, "AAA", snapshot.Shares[0].Symbol)
	assert.Equal(t, "7.00", snapshot.Shares[0].Total.StringFixed(2))
	assert.Equal(t, "BBB", snapshot.Shares[1].Symbol)
	assert.Equal(t, "50.00", snapshot.Shares[1].Total.StringFixed(2))

	assert.Equal(t, "57.00", snapshot.TotalValue.StringFixed(2))
}

// Each line is rounded before summing, so sub-cent prices settle per line
// exactly like the trades that produced them.
func TestBuildSnapshotRoundsPerLine(t *testing.T) {
	db := setupSnapshotDB(t)

	portfolio := &types.Portfolio{UserID: 1}
	require.NoError(t, db.Create(portfolio).Error)

	seedHolding(t, db, portfolio.ID, "AAA", "0.015", 1)
	seedHolding(t, db, portfolio.ID, "BBB", "0.015", 1)

	snapshot, err := BuildSnapshotTx(db, portfolio.ID, "Alice")
	require.NoError(t, err)

	assert.Equal(t, "0.02", snapshot.Shares[0].Total.StringFixed(2))
	// 0.02 + 0.02, not round2(0.03)
	assert.Equal(t, "0.04", snapshot.TotalValue.StringFixed(2))
}

func TestBuildSnapshotEmptyPortfolio(t *testing.T) {
	db := setupSnapshotDB(t)

	portfolio := &types.Portfolio{UserID: 1}
	require.NoError(t, db.Create(portfolio).Error)

	snapshot, err := BuildSnapshotTx(db, portfolio.ID, "Alice")
	require.NoError(t, err)

	assert.Empty(t, snapshot.Shares)
	assert.True(t, snapshot.TotalValue.IsZero())
}
