package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/baladia/taxe/internal/authz"
	"github.com/baladia/taxe/internal/config"
	"github.com/baladia/taxe/internal/database"
	"github.com/baladia/taxe/internal/handlers"
	"github.com/baladia/taxe/internal/logger"
	"github.com/baladia/taxe/internal/metrics"
	"github.com/baladia/taxe/internal/middleware"
	"github.com/baladia/taxe/internal/repository"
	"github.com/baladia/taxe/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	migrateTimeout  = 2 * time.Minute
)

func main() {
	// Load configuration from .env files and environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.NewWithOptions(logger.Options{
		Env:   cfg.Server.Env,
		Level: cfg.Log.Level,
	})
	log.Info("Starting property tax API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	if cfg.Database.MigrateOnStart {
		if err := migrate(ctx, db, log); err != nil {
			log.Fatal("Failed to apply migrations", err, nil)
		}
	}

	authorizer, err := authz.New(log)
	if err != nil {
		log.Fatal("Failed to initialize authorization", err, nil)
	}

	// Initialize repository and service layers. The database doubles as the
	// transactor so every workflow runs in a single transaction.
	propertyRepo := repository.NewPropertyRepository(db)
	oppositionRepo := repository.NewOppositionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	propertyService := services.NewPropertyService(propertyRepo, db, log)
	oppositionService := services.NewOppositionService(propertyRepo, oppositionRepo, db, log)
	paymentService := services.NewPaymentService(propertyRepo, paymentRepo, db, log)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Middleware order: RequestID -> Logger -> Recovery -> Metrics -> CORS -> Identity
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Metrics())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(rateLimitStore(cfg.RateLimit, log), cfg.RateLimit.PerMinute))
	}
	router.Use(middleware.CORS(cfg.CORS.Origins))
	router.Use(middleware.Identity())

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	handlers.RegisterRoutes(router, handlers.Handlers{
		Health:      handlers.NewHealthHandler(db, cfg.Server.Env),
		Tax:         handlers.NewTaxHandler(),
		Properties:  handlers.NewPropertyHandler(propertyService),
		Oppositions: handlers.NewOppositionHandler(oppositionService),
		Payments:    handlers.NewPaymentHandler(paymentService),
	}, authorizer)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

// migrate applies pending schema migrations before the server accepts traffic.
func migrate(ctx context.Context, db *database.Database, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	migrator, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	defer migrator.Close()

	applied, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	log.Info("Database migrations applied", map[string]interface{}{
		"applied": applied,
	})
	return nil
}

// rateLimitStore picks the configured limiter storage, falling back to memory
// when redis cannot be set up.
func rateLimitStore(cfg config.RateLimitConfig, log *logger.Logger) limiter.Store {
	if cfg.Storage != "redis" {
		return middleware.NewMemoryStore()
	}
	store, err := middleware.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Warn("Failed to create redis store for rate limiting, falling back to memory", map[string]interface{}{
			"error": err.Error(),
		})
		return middleware.NewMemoryStore()
	}
	return store
}
