package user

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

// Create inserts the user and their portfolio in one transaction via the
// association; a user never exists without a portfolio.
func (d *Database) Create(user *types.User) error {
	return d.db.Create(user).Error
}

func (d *Database) GetByEmail(email string) (*types.User, error) {
	var user types.User
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByID loads a user with their portfolio. Returns (nil, nil) when the
// user or the portfolio is missing.
func (d *Database) GetByID(id uint) (*types.User, error) {
	var user types.User
	if err := d.db.Preload("Portfolio").First(&user, id).Error; err != nil {
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
