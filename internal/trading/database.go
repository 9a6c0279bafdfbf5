package trading

import (
	"errors"
	"time"

	"github.com/ksred/shareledger-api/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Begin opens the transaction a trade executes in. The service owns
// commit/rollback explicitly.
func (d *Database) Begin() *gorm.DB {
	return d.db.Begin()
}

// GetUserWithPortfolioTx loads a user and their portfolio inside the
// transaction. Returns (nil, nil) when either is missing.
func (d *Database) GetUserWithPortfolioTx(tx *gorm.DB, userID uint) (*types.User, error) {
	var user types.User
	if err := tx.Preload("Portfolio").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if user.Portfolio == nil {
		return nil, nil
	}
	return &user, nil
}

// GetHoldingTx reads a holding inside the transaction. The read alone is not
// enough to make a sell safe; DecrementHoldingTx carries the guard that keeps
// concurrent sells from driving the balance negative.
// Returns (nil, nil) when the portfolio has never held the share.
func (d *Database) GetHoldingTx(tx *gorm.DB, portfolioID, shareID uint) (*types.PortfolioShare, error) {
	var holding types.PortfolioShare
	err := tx.Where("portfolio_id = ? AND share_id = ?", portfolioID, shareID).
		First(&holding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &holding, nil
}

// UpsertHoldingTx adds delta to a holding, creating the row on first buy.
func (d *Database) UpsertHoldingTx(tx *gorm.DB, portfolioID, shareID uint, delta int64) error {
	holding := types.PortfolioShare{
		PortfolioID: portfolioID,
		ShareID:     shareID,
		Quantity:    delta,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "portfolio_id"}, {Name: "share_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(&holding).Error
}

// DecrementHoldingTx subtracts quantity from a holding, guarded so the
// balance can never go negative: the update only matches rows that still
// hold at least the requested quantity. Returns false when no row matched.
func (d *Database) DecrementHoldingTx(tx *gorm.DB, portfolioID, shareID uint, quantity int64) (bool, error) {
	res := tx.Model(&types.PortfolioShare{}).
		Where("portfolio_id = ? AND share_id = ? AND quantity >= ?", portfolioID, shareID, quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateTradeTx appends a trade to the ledger. Trades are never updated.
func (d *Database) CreateTradeTx(tx *gorm.DB, trade *types.Trade) error {
	return tx.Create(trade).Error
}

// GetTradesForPortfolio returns a portfolio's trade history, newest first.
func (d *Database) GetTradesForPortfolio(portfolioID uint) ([]types.Trade, error) {
	var trades []types.Trade
	err := d.db.Where("portfolio_id = ?", portfolioID).
		Order("created_at desc, id desc").
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}
