package shares

import (
	"errors"

	"github.com/ksred/shareledger-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetBySymbol(symbol string) (*types.Share, error) {
	return d.GetBySymbolTx(d.db, symbol)
}

// GetBySymbolTx looks up a share inside the caller's transaction scope.
// A missing row returns (nil, nil).
func (d *Database) GetBySymbolTx(tx *gorm.DB, symbol string) (*types.Share, error) {
	var share types.Share
	if err := tx.Where("symbol = ?", symbol).First(&share).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &share, nil
}

func (d *Database) Create(share *types.Share) error {
	return d.db.Create(share).Error
}

func (d *Database) List() ([]types.Share, error) {
	var shares []types.Share
	if err := d.db.Order("symbol asc").Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

func (d *Database) Update(share *types.Share) error {
	return d.db.Save(share).Error
}

func (d *Database) Delete(share *types.Share) error {
	return d.db.Delete(share).Error
}
