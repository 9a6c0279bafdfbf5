package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Monetary fields cross the cache boundary as serialized JSON; they must be
// plain fixed-point numbers there, not quoted decimal strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

type User struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	Email     string     `gorm:"uniqueIndex" json:"email"`
	Name      string     `json:"name"`
	Password  string     `json:"-"` // bcrypt hash
	Portfolio *Portfolio `gorm:"foreignKey:UserID" json:"portfolio,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Portfolio is created together with its user; exactly one per user.
type Portfolio struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	UserID    uint             `gorm:"uniqueIndex" json:"user_id"`
	Shares    []PortfolioShare `gorm:"foreignKey:PortfolioID" json:"shares,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type Share struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Symbol    string          `gorm:"uniqueIndex" json:"symbol"`
	Price     decimal.Decimal `gorm:"type:decimal(20,2)" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PortfolioShare is the holding of one share within one portfolio.
// Quantity never goes negative; rows stay around at quantity zero so trade
// upserts stay simple. A missing row means a zero holding.
type PortfolioShare struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	PortfolioID uint      `gorm:"uniqueIndex:idx_portfolio_share" json:"portfolio_id"`
	ShareID     uint      `gorm:"uniqueIndex:idx_portfolio_share" json:"share_id"`
	Quantity    int64     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Trade is an append-only ledger row. Quantity is signed: positive for buys,
// negative for sells. Price is the share price at execution time and is never
// touched again when the share's current price moves.
type Trade struct {
	ID          uint            `gorm:"primarykey" json:"-"`
	TradeID     string          `gorm:"uniqueIndex" json:"trade_id"`
	PortfolioID uint            `json:"portfolio_id"`
	ShareID     uint            `json:"share_id"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(20,2)" json:"price"`
	Type        TradeType       `json:"type"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TradeRequest struct {
	ShareSymbol string `json:"share_symbol" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
}

type TradeResult struct {
	Message   string          `json:"message"`
	Trade     *Trade          `json:"trade"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// SharePosition is one line of a portfolio snapshot.
type SharePosition struct {
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// PortfolioSnapshot is the read-facing view of a portfolio, recomputed from
// the ledger after every mutation and served from the cache in between.
type PortfolioSnapshot struct {
	ID         uint            `json:"id"`
	OwnerName  string          `json:"owner_name"`
	Shares     []SharePosition `json:"shares"`
	TotalValue decimal.Decimal `json:"total_value"`
}

type UserWithPortfolio struct {
	ID        uint              `json:"id"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Portfolio PortfolioSnapshot `json:"portfolio"`
}
