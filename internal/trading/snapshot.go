package trading

import (
	"github.com/ksred/shareledger-api/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BuildSnapshotTx recomputes a portfolio's read-facing snapshot from the
// ledger. Called inside the trade transaction so it observes the pending
// holding mutation; also used by the portfolio read path on a cache miss.
//
// Holdings at quantity zero stay in the database but are excluded here.
// Each line total is rounded to 2 decimal places before summing so snapshot
// totals line up with trade settlement amounts.
func BuildSnapshotTx(tx *gorm.DB, portfolioID uint, ownerName string) (*types.PortfolioSnapshot, error) {
	var lines []struct {
		Symbol   string
		Price    decimal.Decimal
		Quantity int64
	}
	err := tx.Table("portfolio_shares").
		Select("shares.symbol AS symbol, shares.price AS price, portfolio_shares.quantity AS quantity").
		Joins("JOIN shares ON shares.id = portfolio_shares.share_id").
		Where("portfolio_shares.portfolio_id = ? AND portfolio_shares.quantity > 0", portfolioID).
		Order("shares.symbol asc").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}

	positions := make([]types.SharePosition, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		lineTotal := types.Cost(line.Price, line.Quantity)
		positions = append(positions, types.SharePosition{
			Symbol:   line.Symbol,
			Price:    line.Price,
			Quantity: line.Quantity,
			Total:    lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return &types.PortfolioSnapshot{
		ID:         portfolioID,
		OwnerName:  ownerName,
		Shares:     positions,
		TotalValue: types.Round2(total),
	}, nil
}
