package user

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/ksred/shareledger-api/internal/cache"
	"github.com/ksred/shareledger-api/internal/trading"
	"github.com/ksred/shareledger-api/internal/types"
	"github.com/ksred/shareledger-api/pkg/middleware"
	"github.com/ksred/shareledger-api/pkg/response"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service handles user registration and the portfolio read path
type Service struct {
	db    *Database
	cache cache.Cache
}

// NewService creates a new user service with the given database connection and cache
func NewService(gormDB *gorm.DB, c cache.Cache) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		cache: c,
	}
}

// Create registers a new user with a bcrypt-hashed password and an empty
// portfolio, created atomically with the user row.
func (s *Service) Create(email, name, password string) (*types.User, error) {
	logger := log.With().Str("service", "user").Str("email", email).Logger()

	existing, err := s.db.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Warn().Msg("email already registered")
		return nil, types.ErrDuplicateUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &types.User{
		Email:     email,
		Name:      name,
		Password:  string(hash),
		Portfolio: &types.Portfolio{},
	}
	if err := s.db.Create(user); err != nil {
		return nil, err
	}

	logger.Info().Uint("user_id", user.ID).Msg("user created")
	return user, nil
}

// GetByEmail returns a user by email, (nil, nil) when unknown.
func (s *Service) GetByEmail(email string) (*types.User, error) {
	return s.db.GetByEmail(email)
}

// GetUserWithPortfolio serves the portfolio read endpoint: cache first, then
// a fresh snapshot from the database which is cached for the next read.
func (s *Service) GetUserWithPortfolio(ctx context.Context, userID uint) (*types.UserWithPortfolio, error) {
	logger := log.With().Str("service", "user").Uint("user_id", userID).Logger()

	cached, err := s.cache.GetUserWithPortfolio(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("user portfolio cache read failed, falling back to database")
	}
	if cached != nil {
		return cached, nil
	}

	user, err := s.db.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		logger.Warn().Msg("invalid user or portfolio")
		return nil, types.ErrInvalidUserOrPortfolio
	}

	snapshot, err := trading.BuildSnapshotTx(s.db.db, user.Portfolio.ID, user.Name)
	if err != nil {
		return nil, err
	}

	result := &types.UserWithPortfolio{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Portfolio: *snapshot,
	}

	if err := s.cache.SetUserWithPortfolio(ctx, userID, result); err != nil {
		logger.Warn().Err(err).Msg("failed to cache user portfolio")
	}

	return result, nil
}

// GinHandlers contains HTTP handlers for user endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for user endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GetPortfolioHandler handles GET requests for the authenticated user's
// portfolio snapshot
func (h *GinHandlers) GetPortfolioHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		result, err := h.service.GetUserWithPortfolio(c.Request.Context(), userID)
		response.Handle(c, result, err)
	}
}
