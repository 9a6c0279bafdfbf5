package trading

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/shareledger-api/internal/cache"
	"github.com/ksred/shareledger-api/internal/shares"
	"github.com/ksred/shareledger-api/internal/types"
	"github.com/ksred/shareledger-api/pkg/middleware"
	"github.com/ksred/shareledger-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service executes buy and sell trades. Each trade runs as one database
// transaction: validate, resolve price, append the trade row, move the
// holding, recompute the snapshot, commit. The cache is written only after
// the commit succeeds so it never exposes state that could still roll back.
type Service struct {
	db     *Database
	shares *shares.Service
	cache  cache.Cache
}

// NewService creates a new trading service with the given database
// connection, share resolver and cache
func NewService(gormDB *gorm.DB, sharesService *shares.Service, c cache.Cache) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		shares: sharesService,
		cache:  c,
	}
}

// Buy purchases quantity units of a share at its current price for the
// user's portfolio.
func (s *Service) Buy(ctx context.Context, userID uint, req types.TradeRequest) (*types.TradeResult, error) {
	return s.execute(ctx, userID, req, types.TradeTypeBuy)
}

// Sell disposes of quantity units, failing with a typed error when the
// portfolio does not hold enough.
func (s *Service) Sell(ctx context.Context, userID uint, req types.TradeRequest) (*types.TradeResult, error) {
	return s.execute(ctx, userID, req, types.TradeTypeSell)
}

func (s *Service) execute(ctx context.Context, userID uint, req types.TradeRequest, tradeType types.TradeType) (*types.TradeResult, error) {
	logger := log.With().
		Str("service", "trading").
		Uint("user_id", userID).
		Str("symbol", req.ShareSymbol).
		Int64("quantity", req.Quantity).
		Str("type", string(tradeType)).
		Logger()

	if req.Quantity <= 0 || strings.TrimSpace(req.ShareSymbol) == "" {
		return nil, types.ErrInvalidRequest
	}

	logger.Info().Msg("executing trade")

	tx := s.db.Begin()
	if err := tx.Error; err != nil {
		logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, types.ErrInternal
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	user, err := s.db.GetUserWithPortfolioTx(tx, userID)
	if err != nil {
		tx.Rollback()
		logger.Error().Err(err).Msg("failed to load user portfolio")
		return nil, types.ErrInternal
	}
	if user == nil {
		tx.Rollback()
		logger.Warn().Msg("invalid user or portfolio")
		return nil, types.ErrInvalidUserOrPortfolio
	}
	portfolio := user.Portfolio

	share, err := s.shares.ResolveShare(ctx, tx, req.ShareSymbol)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, types.ErrShareNotFound) {
			logger.Warn().Msg("share not found")
			return nil, err
		}
		logger.Error().Err(err).Msg("failed to resolve share")
		return nil, types.ErrInternal
	}

	signedQuantity := req.Quantity
	if tradeType == types.TradeTypeSell {
		signedQuantity = -req.Quantity

		holding, err := s.db.GetHoldingTx(tx, portfolio.ID, share.ID)
		if err != nil {
			tx.Rollback()
			logger.Error().Err(err).Msg("failed to read holding")
			return nil, types.ErrInternal
		}
		if holding == nil || holding.Quantity < req.Quantity {
			tx.Rollback()
			logger.Warn().Msg("insufficient shares in portfolio")
			return nil, types.ErrInsufficientShares
		}
	}

	trade := &types.Trade{
		TradeID:     uuid.New().String(),
		PortfolioID: portfolio.ID,
		ShareID:     share.ID,
		Quantity:    signedQuantity,
		Price:       share.Price,
		Type:        tradeType,
	}
	if err := s.db.CreateTradeTx(tx, trade); err != nil {
		tx.Rollback()
		logger.Error().Err(err).Msg("failed to append trade")
		return nil, types.ErrInternal
	}

	if tradeType == types.TradeTypeBuy {
		if err := s.db.UpsertHoldingTx(tx, portfolio.ID, share.ID, req.Quantity); err != nil {
			tx.Rollback()
			logger.Error().Err(err).Msg("failed to upsert holding")
			return nil, types.ErrInternal
		}
	} else {
		ok, err := s.db.DecrementHoldingTx(tx, portfolio.ID, share.ID, req.Quantity)
		if err != nil {
			tx.Rollback()
			logger.Error().Err(err).Msg("failed to decrement holding")
			return nil, types.ErrInternal
		}
		if !ok {
			// Lost a race after the holding check; the guarded update is what
			// keeps the balance from ever going negative.
			tx.Rollback()
			logger.Warn().Msg("insufficient shares in portfolio")
			return nil, types.ErrInsufficientShares
		}
	}

	snapshot, err := BuildSnapshotTx(tx, portfolio.ID, user.Name)
	if err != nil {
		tx.Rollback()
		logger.Error().Err(err).Msg("failed to build portfolio snapshot")
		return nil, types.ErrInternal
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error().Err(err).Msg("failed to commit trade")
		return nil, types.ErrInternal
	}

	// The ledger is committed; cache writes from here on are best-effort and
	// never fail the trade.
	if err := s.cache.SetShare(ctx, share); err != nil {
		logger.Warn().Err(err).Msg("failed to refresh share cache")
	}
	if err := s.cache.SetPortfolio(ctx, userID, snapshot); err != nil {
		logger.Warn().Err(err).Msg("failed to refresh portfolio cache")
	}
	if err := s.cache.DeleteUserWithPortfolio(ctx, userID); err != nil {
		logger.Warn().Err(err).Msg("failed to evict user portfolio cache")
	}

	totalCost := types.Cost(share.Price, req.Quantity)
	message := "purchase successful"
	if tradeType == types.TradeTypeSell {
		message = "sale successful"
	}

	logger.Info().
		Str("trade_id", trade.TradeID).
		Str("total_cost", totalCost.String()).
		Msg("trade committed")

	return &types.TradeResult{
		Message:   message,
		Trade:     trade,
		TotalCost: totalCost,
	}, nil
}

// GetTradeHistory returns the committed trades for the user's portfolio.
func (s *Service) GetTradeHistory(userID uint) ([]types.Trade, error) {
	user, err := s.db.GetUserWithPortfolioTx(s.db.db, userID)
	if err != nil {
		return nil, types.ErrInternal
	}
	if user == nil {
		return nil, types.ErrInvalidUserOrPortfolio
	}
	return s.db.GetTradesForPortfolio(user.Portfolio.ID)
}

// GinHandlers contains HTTP handlers for trade endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for trade endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// BuyHandler handles POST requests to buy shares
// Requires a valid JWT token; the user id comes from the token claims
func (h *GinHandlers) BuyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		var req types.TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.Buy(c.Request.Context(), userID, req)
		response.Handle(c, result, err)
	}
}

// SellHandler handles POST requests to sell shares
func (h *GinHandlers) SellHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		var req types.TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.Sell(c.Request.Context(), userID, req)
		response.Handle(c, result, err)
	}
}

// TradeHistoryHandler handles GET requests for the user's trade ledger
func (h *GinHandlers) TradeHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		trades, err := h.service.GetTradeHistory(userID)
		response.Handle(c, trades, err)
	}
}
