package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ecoppen/freqdash/internal/api"
	"github.com/ecoppen/freqdash/internal/config"
	"github.com/ecoppen/freqdash/internal/database"
	"github.com/ecoppen/freqdash/internal/exchange"
	"github.com/ecoppen/freqdash/internal/scraper"
	"github.com/ecoppen/freqdash/internal/tunnel"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	if err := godotenv.Load(); err == nil {
		logrus.Debug("Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Unknown log level %q, keeping info", cfg.LogLevel)
	} else {
		logrus.SetLevel(level)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db.Pool); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	store := database.NewStore(db.Pool)
	registry := exchange.NewRegistry()
	tunnels := tunnel.Load(cfg.TunnelConfigs())

	// Start the reconciliation loop
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := scraper.New(store, redis, registry, tunnels, cfg.Scraper.NewsSources,
		time.Duration(cfg.Scraper.IntervalSeconds)*time.Second)
	go engine.Run(ctx)

	// Setup Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, api.NewHandler(db, redis, store, registry))

	// Create HTTP server
	srv := newServer(cfg.Server.Port, router)

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Stop the scraper before closing the pools it writes to.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func newServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}
}
