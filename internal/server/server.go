// Package server contains the HTTP handlers for the approval workflow.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mindposter/internal/config"
	"mindposter/internal/database"
	"mindposter/internal/generator"
	"mindposter/internal/instagram"
	"mindposter/internal/mailer"
	"mindposter/internal/middleware"
	"mindposter/internal/repository"
	"mindposter/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	postRepo       repository.PostRepository
	lifecycle      *service.LifecycleService
	pipeline       *service.Pipeline
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := connectRedis(cfg.RedisURL)

	postRepo := repository.NewPostRepository(db)

	gateway := instagram.NewClient(cfg)
	publisher := instagram.NewPublisher(gateway, cfg)
	lifecycle := service.NewLifecycleService(postRepo, publisher, cfg.MediaImageURL)

	themes, err := generator.LoadThemes(cfg.ThemesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load theme catalogue: %w", err)
	}
	pipeline := service.NewPipeline(
		themes,
		postRepo,
		generator.New(cfg),
		mailer.New(cfg),
		lifecycle,
		cfg.ThemeExclusionDays,
	)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("mindposter-api"),
		postRepo:       postRepo,
		lifecycle:      lifecycle,
		pipeline:       pipeline,
	}, nil
}

// Pipeline exposes the generation pipeline so the scheduler shares the exact
// code path used by the manual /generate endpoint.
func (s *Server) Pipeline() *service.Pipeline {
	return s.pipeline
}

// connectRedis opens the rate-limit store. Redis being down is not fatal: the
// rate limiter falls back to its configured fail policy.
func connectRedis(addr string) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unavailable, rate limiting degraded",
			slog.String("addr", addr),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return client
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// CORS for the dashboard and health checks; the capability links are
	// navigated directly, not fetched cross-origin.
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.BaseURL,
		AllowMethods: "GET,POST",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Global rate limiting. The approval surface is driven by one human
	// reviewer; anything past this is a scanner or a mistake.
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.Health)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Token-bearing capability links. Rate limited because the token arrives
	// over an unauthenticated channel and links get prefetched by scanners.
	app.Get("/approve/:token", middleware.RateLimit(
		s.redis, 30, time.Minute, "action"), s.Approve)
	app.Get("/reject/:token", middleware.RateLimit(
		s.redis, 30, time.Minute, "action"), s.Reject)
	app.Get("/preview/:token", s.Preview)

	app.Get("/dashboard", s.Dashboard)

	// Manual generation trigger, bearer protected. FailClosed: if the rate
	// limit store is down we would rather refuse than allow a burst of
	// generation spend.
	app.Post("/generate", middleware.RateLimitWithPolicy(
		s.redis, 5, time.Minute, middleware.FailClosed, "generate"), s.Generate)
}

// Shutdown releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Warn("redis close failed", slog.String("error", err.Error()))
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
