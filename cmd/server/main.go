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
	"github.com/vuthy55/studio-sub006/internal/adapter"
	"github.com/vuthy55/studio-sub006/internal/api"
	"github.com/vuthy55/studio-sub006/internal/cache"
	"github.com/vuthy55/studio-sub006/internal/config"
	"github.com/vuthy55/studio-sub006/internal/repository"
	"github.com/vuthy55/studio-sub006/internal/service"
	"github.com/vuthy55/studio-sub006/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	// Set up the store
	var repo repository.Repository
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		repo = repository.NewMemoryRepository()
	case "postgres":
		db, err := config.SetupDatabase(cfg)
		if err != nil {
			logger.WithError(err).Fatal("Failed to set up database")
		}
		defer db.Close()
		repo = repository.NewPostgresRepository(db)
	default:
		logger.Fatal("Unknown DB_DRIVER %q", cfg.Database.Driver)
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithProviders(adapter.NewProviders(cfg, logger)),
	}

	// Settings cache is optional
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("Settings cache disabled")
		} else {
			defer client.Close()
			opts = append(opts, service.WithSettingsCache(cache.NewSettingsCache(client, cfg.Redis.TTL)))
			logger.WithField("addr", cfg.Redis.Addr()).Info("Settings cache enabled")
		}
	}

	svc := service.NewDefaultService(repo, service.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		TokenDuration:  cfg.Auth.TokenDuration,
		DeletePageSize: cfg.Ledger.DeletePageSize,
	}, opts...)

	handler := api.NewHandler(svc, api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	// Set up Gin router
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger), api.JWTSecretMiddleware(cfg.Auth.JWTSecret))
	handler.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}
}
