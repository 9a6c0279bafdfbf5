package shares

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ksred/shareledger-api/internal/cache"
	"github.com/ksred/shareledger-api/internal/types"
	"github.com/ksred/shareledger-api/pkg/response"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service handles share administration and price resolution
type Service struct {
	db    *Database
	cache cache.Cache
}

// NewService creates a new shares service with the given database connection and cache
func NewService(gormDB *gorm.DB, c cache.Cache) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		cache: c,
	}
}

type CreateShareRequest struct {
	Symbol string          `json:"symbol" binding:"required"`
	Price  decimal.Decimal `json:"price" binding:"required"`
}

type UpdateShareRequest struct {
	Symbol string           `json:"symbol"`
	Price  *decimal.Decimal `json:"price"`
}

// ResolveShare resolves a share's current price, cache first, then the
// database within the caller's transaction scope. A database hit populates
// the cache best-effort; cache failures are logged and never surface, so
// correctness depends only on the database.
func (s *Service) ResolveShare(ctx context.Context, tx *gorm.DB, symbol string) (*types.Share, error) {
	logger := log.With().Str("service", "shares").Str("symbol", symbol).Logger()

	share, err := s.cache.GetShare(ctx, symbol)
	if err != nil {
		logger.Warn().Err(err).Msg("share cache read failed, falling back to database")
	}
	if share != nil {
		return share, nil
	}

	share, err = s.db.GetBySymbolTx(tx, symbol)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, types.ErrShareNotFound
	}

	if err := s.cache.SetShare(ctx, share); err != nil {
		logger.Warn().Err(err).Msg("failed to populate share cache")
	}

	return share, nil
}

// CreateShare creates a new share and writes it through to the cache.
// Fails with a conflict if the symbol is already taken.
func (s *Service) CreateShare(ctx context.Context, req CreateShareRequest) (*types.Share, error) {
	logger := log.With().Str("service", "shares").Str("symbol", req.Symbol).Logger()

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" || req.Price.IsNegative() {
		return nil, types.ErrInvalidRequest
	}

	existing, err := s.db.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Warn().Msg("share already exists")
		return nil, types.ErrDuplicateShare
	}

	share := &types.Share{
		Symbol: symbol,
		Price:  types.Round2(req.Price),
	}
	if err := s.db.Create(share); err != nil {
		return nil, err
	}

	if err := s.cache.SetShare(ctx, share); err != nil {
		logger.Warn().Err(err).Msg("failed to cache created share")
	}

	logger.Info().Str("price", share.Price.String()).Msg("share created")
	return share, nil
}

// GetShare returns a share by symbol through the cache-aside read path.
func (s *Service) GetShare(ctx context.Context, symbol string) (*types.Share, error) {
	return s.ResolveShare(ctx, s.db.db, symbol)
}

// ListShares returns all shares straight from the database.
func (s *Service) ListShares() ([]types.Share, error) {
	return s.db.List()
}

// UpdateShare updates a share's price and, optionally, its symbol. A symbol
// rename deletes the old cache key before writing the new one so no stale
// alias survives.
func (s *Service) UpdateShare(ctx context.Context, symbol string, req UpdateShareRequest) (*types.Share, error) {
	logger := log.With().Str("service", "shares").Str("symbol", symbol).Logger()

	share, err := s.db.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, types.ErrShareNotFound
	}

	newSymbol := strings.TrimSpace(req.Symbol)
	if newSymbol != "" && newSymbol != symbol {
		taken, err := s.db.GetBySymbol(newSymbol)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, types.ErrDuplicateShare
		}
		share.Symbol = newSymbol
	}

	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, types.ErrInvalidRequest
		}
		share.Price = types.Round2(*req.Price)
	}

	if err := s.db.Update(share); err != nil {
		return nil, err
	}

	if share.Symbol != symbol {
		if err := s.cache.DeleteShare(ctx, symbol); err != nil {
			logger.Warn().Err(err).Msg("failed to evict renamed share from cache")
		}
	}
	if err := s.cache.SetShare(ctx, share); err != nil {
		logger.Warn().Err(err).Msg("failed to cache updated share")
	}

	logger.Info().Str("new_symbol", share.Symbol).Msg("share updated")
	return share, nil
}

// DeleteShare removes a share and evicts its cache entry. Historical trades
// keep their share id and execution price, so nothing cascades.
func (s *Service) DeleteShare(ctx context.Context, symbol string) error {
	logger := log.With().Str("service", "shares").Str("symbol", symbol).Logger()

	share, err := s.db.GetBySymbol(symbol)
	if err != nil {
		return err
	}
	if share == nil {
		return types.ErrShareNotFound
	}

	if err := s.db.Delete(share); err != nil {
		return err
	}

	if err := s.cache.DeleteShare(ctx, symbol); err != nil {
		logger.Warn().Err(err).Msg("failed to evict deleted share from cache")
	}

	logger.Info().Msg("share deleted")
	return nil
}

// GinHandlers contains HTTP handlers for share endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for share endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateShareHandler handles POST requests to create shares
func (h *GinHandlers) CreateShareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateShareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		share, err := h.service.CreateShare(c.Request.Context(), req)
		response.Handle(c, share, err)
	}
}

// ListSharesHandler handles GET requests for the full share list
func (h *GinHandlers) ListSharesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shares, err := h.service.ListShares()
		response.Handle(c, shares, err)
	}
}

// GetShareHandler handles GET requests for a single share by symbol
func (h *GinHandlers) GetShareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		symbol := c.Param("symbol")
		share, err := h.service.GetShare(c.Request.Context(), symbol)
		response.Handle(c, share, err)
	}
}

// UpdateShareHandler handles PUT requests to update a share
func (h *GinHandlers) UpdateShareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateShareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		share, err := h.service.UpdateShare(c.Request.Context(), c.Param("symbol"), req)
		response.Handle(c, share, err)
	}
}

// DeleteShareHandler handles DELETE requests to remove a share
func (h *GinHandlers) DeleteShareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.service.DeleteShare(c.Request.Context(), c.Param("symbol"))
		response.Handle(c, gin.H{"message": "share removed successfully"}, err)
	}
}
