package cache

import (
	"context"

	"github.com/ksred/shareledger-api/internal/types"
)

// Key prefixes. Full keys look like "share:AAPL" or "portfolio:42".
const (
	PrefixShare         = "share"
	PrefixPortfolio     = "portfolio"
	PrefixUser          = "user"
	PrefixUserPortfolio = "user-with-portfolio"
)

// Key builds a namespaced cache key.
func Key(prefix, id string) string {
	return prefix + ":" + id
}

// Cache is the side-store holding serialized snapshots of committed state.
// It is strictly a read accelerator: a miss or failure falls back to the
// database, and writes after a commit are best-effort. No caller may treat
// its contents as authoritative.
type Cache interface {
	GetShare(ctx context.Context, symbol string) (*types.Share, error)
	SetShare(ctx context.Context, share *types.Share) error
	DeleteShare(ctx context.Context, symbol string) error

	GetPortfolio(ctx context.Context, userID uint) (*types.PortfolioSnapshot, error)
	SetPortfolio(ctx context.Context, userID uint, snapshot *types.PortfolioSnapshot) error

	GetUserWithPortfolio(ctx context.Context, userID uint) (*types.UserWithPortfolio, error)
	SetUserWithPortfolio(ctx context.Context, userID uint, user *types.UserWithPortfolio) error
	DeleteUserWithPortfolio(ctx context.Context, userID uint) error
}
