package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/nexesmission/ardhi-backend/internal/config"
	"github.com/nexesmission/ardhi-backend/internal/handler"
	"github.com/nexesmission/ardhi-backend/internal/middleware"
	"github.com/nexesmission/ardhi-backend/internal/repository/postgres"
	"github.com/nexesmission/ardhi-backend/internal/service"
	"github.com/nexesmission/ardhi-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	saleRepo := postgres.NewSaleRepository(pool)
	installmentRepo := postgres.NewInstallmentRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	templateRepo := postgres.NewTemplateRepository(pool)
	recordRepo := postgres.NewRecordRepository(pool)

	// Initialize services
	saleService := service.NewSaleService(saleRepo, installmentRepo)
	ledgerService := service.NewLedgerService(saleRepo, installmentRepo, paymentRepo)
	templateService := service.NewTemplateService(templateRepo, recordRepo)
	recordService := service.NewRecordService(recordRepo, templateRepo)
	driverService := service.NewDriverService(templateRepo, recordRepo)

	// WebSocket hub for live dashboard updates
	hub := websocket.NewHub()
	saleService.SetEventPublisher(hub)
	ledgerService.SetEventPublisher(hub)
	templateService.SetEventPublisher(hub)
	driverService.SetEventPublisher(hub)

	// Auth and rate limiting
	authMiddleware := middleware.NewAPIKeyAuthMiddleware(cfg.APIKeys)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	// Initialize handlers
	saleHandler := handler.NewSaleHandler(saleService)
	paymentHandler := handler.NewPaymentHandler(ledgerService)
	templateHandler := handler.NewTemplateHandler(templateService)
	recordHandler := handler.NewRecordHandler(recordService)
	recurrenceHandler := handler.NewRecurrenceHandler(driverService)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.APIKeys, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, saleHandler, paymentHandler, templateHandler, recordHandler, recurrenceHandler, wsHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
