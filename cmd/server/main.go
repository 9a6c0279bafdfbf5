package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/shareledger-api/internal/auth"
	"github.com/ksred/shareledger-api/internal/cache"
	"github.com/ksred/shareledger-api/internal/config"
	"github.com/ksred/shareledger-api/internal/database"
	"github.com/ksred/shareledger-api/internal/shares"
	"github.com/ksred/shareledger-api/internal/trading"
	"github.com/ksred/shareledger-api/internal/types"
	"github.com/ksred/shareledger-api/internal/user"
	"github.com/ksred/shareledger-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the share trading API server with graceful
// shutdown support
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize cache; the database stays authoritative, so a missing Redis
	// downgrades to an in-process cache instead of refusing to start
	store, redisClient := newCache(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	userService := user.NewService(db, store)
	userHandlers := user.NewGinHandlers(userService)

	authService := auth.NewService(cfg.JWTSecret, userService)
	authHandlers := auth.NewGinHandlers(authService)

	sharesService := shares.NewService(db, store)
	sharesHandlers := shares.NewGinHandlers(sharesService)

	tradingService := trading.NewService(db, sharesService, store)
	tradingHandlers := trading.NewGinHandlers(tradingService)

	if cfg.Seed {
		seedShares(sharesService)
	}

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	router.GET("/health", healthHandler(db, redisClient))
	setupRoutes(router, cfg.JWTSecret, authHandlers, sharesHandlers, tradingHandlers, userHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// newCache connects to Redis and falls back to the in-memory cache when the
// connection cannot be established.
func newCache(cfg *config.Config) (cache.Cache, *redis.Client) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Warn().Err(err).Str("addr", cfg.Redis.Addr).
			Msg("Redis unavailable, using in-memory cache")
		client.Close()
		return cache.NewMemoryCache(), nil
	}

	zlog.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	return cache.NewRedisCache(client), client
}

// seedShares inserts a handful of development shares, skipping ones that
// already exist.
func seedShares(service *shares.Service) {
	seeds := map[string]string{
		"AAPL":  "178.25",
		"GOOGL": "141.80",
		"MSFT":  "404.50",
		"AMZN":  "174.99",
		"META":  "485.10",
	}

	for symbol, price := range seeds {
		p, err := decimal.NewFromString(price)
		if err != nil {
			zlog.Error().Err(err).Str("symbol", symbol).Msg("invalid seed price")
			continue
		}

		_, err = service.CreateShare(context.Background(), shares.CreateShareRequest{
			Symbol: symbol,
			Price:  p,
		})
		if err != nil && !errors.Is(err, types.ErrDuplicateShare) {
			zlog.Error().Err(err).Str("symbol", symbol).Msg("failed to seed share")
		}
	}
}

// healthHandler reports per-dependency status for the database and cache
func healthHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{}

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			checks["database"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "up"
		}

		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				checks["cache"] = "down"
			} else {
				checks["cache"] = "up"
			}
		} else {
			checks["cache"] = "in-memory"
		}

		c.JSON(status, checks)
	}
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for registration and login
// - Share routes: Public reads, JWT-protected administration
// - Trade and user routes: Protected by JWT authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	sharesHandlers *shares.GinHandlers,
	tradingHandlers *trading.GinHandlers,
	userHandlers *user.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandlers.RegisterHandler())
			authRoutes.POST("/login", authHandlers.LoginHandler())
		}

		// Share routes: reads are public, mutations need a token
		shareRoutes := v1.Group("/shares")
		{
			shareRoutes.GET("", sharesHandlers.ListSharesHandler())
			shareRoutes.GET("/:symbol", sharesHandlers.GetShareHandler())
		}
		shareAdmin := v1.Group("/shares")
		shareAdmin.Use(middleware.JWTAuth(jwtSecret))
		{
			shareAdmin.POST("", sharesHandlers.CreateShareHandler())
			shareAdmin.PUT("/:symbol", sharesHandlers.UpdateShareHandler())
			shareAdmin.DELETE("/:symbol", sharesHandlers.DeleteShareHandler())
		}

		// Trade routes
		tradeRoutes := v1.Group("/trades")
		tradeRoutes.Use(middleware.JWTAuth(jwtSecret))
		{
			tradeRoutes.POST("/buy", tradingHandlers.BuyHandler())
			tradeRoutes.POST("/sell", tradingHandlers.SellHandler())
			tradeRoutes.GET("/history", tradingHandlers.TradeHistoryHandler())
		}

		// User routes
		userRoutes := v1.Group("/user")
		userRoutes.Use(middleware.JWTAuth(jwtSecret))
		{
			userRoutes.GET("/me/portfolio", userHandlers.GetPortfolioHandler())
		}
	}
}
