package migrations

import (
	"gorm.io/gorm"
)

// AddTradeIndexes creates the lookup indexes the trade and portfolio read
// paths depend on. AutoMigrate already enforces the unique constraints; these
// are plain indexes for the hot queries.
func AddTradeIndexes(db *gorm.DB) error {
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Ledger lookups by portfolio (audit trail reads)
		`CREATE INDEX IF NOT EXISTS idx_trades_portfolio_id
		 ON trades(portfolio_id)`,

		// Composite index for per-share trade history
		`CREATE INDEX IF NOT EXISTS idx_trades_portfolio_share
		 ON trades(portfolio_id, share_id)`,

		// Index for created_at timestamp (useful for time-based queries)
		`CREATE INDEX IF NOT EXISTS idx_trades_created_at
		 ON trades(created_at)`,

		// Snapshot aggregation walks a portfolio's holdings
		`CREATE INDEX IF NOT EXISTS idx_portfolio_shares_portfolio_id
		 ON portfolio_shares(portfolio_id)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
