package database

import (
	"fmt"

	"github.com/ksred/shareledger-api/internal/database/migrations"
	"github.com/ksred/shareledger-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&types.User{},
		&types.Portfolio{},
		&types.Share{},
		&types.PortfolioShare{},
		&types.Trade{},
	)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddTradeIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
