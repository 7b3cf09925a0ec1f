package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/stride-hq/kanban-api/docs" // Swagger docs (generated)
	"github.com/stride-hq/kanban-api/internal/admin"
	"github.com/stride-hq/kanban-api/internal/auth"
	"github.com/stride-hq/kanban-api/internal/config"
	"github.com/stride-hq/kanban-api/internal/database"
	"github.com/stride-hq/kanban-api/internal/email"
	httpServer "github.com/stride-hq/kanban-api/internal/http"
	"github.com/stride-hq/kanban-api/internal/logging"
	"github.com/stride-hq/kanban-api/internal/ratelimit"
	"github.com/stride-hq/kanban-api/internal/session"
	"github.com/stride-hq/kanban-api/internal/task"
	"github.com/stride-hq/kanban-api/internal/user"
)

// @title           Stride Kanban API
// @version         1.0
// @description     Session-authenticated REST API for a personal Kanban board with user accounts, admin tooling, and password reset.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories and stores
	userRepo := user.NewRepository(db)
	taskRepo := task.NewRepository(db)
	resetRepo := auth.NewPasswordResetRepository(db)
	sessionStore := session.NewStore(redisClient, cfg.Session.TTL)

	// Expired reset tokens accumulate otherwise; sweep them at boot.
	if err := resetRepo.DeleteExpired(context.Background()); err != nil {
		logger.Warn("failed to sweep expired reset tokens", "error", err.Error())
	}

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient)

	// Initialize email service
	emailService := email.NewService(cfg.Email, logger)

	// Initialize services
	authService := auth.NewService(userRepo, resetRepo, sessionStore, emailService, logger)
	taskService := task.NewService(taskRepo)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(
		authService,
		sessionStore,
		rateLimiter,
		!cfg.Server.IsDevelopment(), // isProduction
		cfg.Session.CookieName,
		cfg.Session.TTL,
	)
	authMiddleware := auth.NewMiddleware(sessionStore, cfg.Session.CookieName)
	taskHandler := task.NewHandler(taskService)
	adminHandler := admin.NewHandler(userRepo, taskService, sessionStore, resetRepo)

	// Initialize router
	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, taskHandler, adminHandler, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
