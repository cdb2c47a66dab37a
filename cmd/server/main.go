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
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/courtsight/shot-evolution/internal/api"
	"github.com/courtsight/shot-evolution/internal/api/handlers"
	"github.com/courtsight/shot-evolution/internal/api/middleware"
	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/providers"
	"github.com/courtsight/shot-evolution/internal/services"
	"github.com/courtsight/shot-evolution/internal/stats"
	"github.com/courtsight/shot-evolution/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}
	logger := logrus.StandardLogger()

	// Hot cache: Redis when configured, in-process otherwise
	var hotCache stats.CacheProvider
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logrus.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		hotCache = services.NewRedisCache(redisClient)
	} else {
		logrus.Info("REDIS_URL not set, using in-memory response cache")
		hotCache = services.NewMemoryCache()
	}

	// Flat-file cache store
	store, err := services.NewCacheStore(cfg.CacheDir, logger)
	if err != nil {
		logrus.Fatalf("Failed to open cache dir: %v", err)
	}

	// Initialize services
	nbaClient := providers.NewNBAClient(cfg.NBABaseURL, cfg.RequestTimeout, cfg.BreakerThreshold, hotCache, logger)
	pacer := services.NewPacer(cfg.PacerMin, cfg.PacerMax)
	fetcher := services.NewFetchService(nbaClient, store, pacer, logger, []string{cfg.ShotChartPlayer})
	aggregator := services.NewAggregator(store, logger)

	webSocketHub := services.NewWebSocketHub()
	go webSocketHub.Run()
	fetcher.SetProgressFunc(func(ev services.ProgressEvent) {
		if err := webSocketHub.Broadcast("fetch_progress", ev); err != nil {
			logger.Warnf("Failed to broadcast progress: %v", err)
		}
	})

	// Scheduled incremental refresh
	if cfg.EnableScheduledRefresh {
		seasons := models.SeasonRange(cfg.SeasonStart, cfg.SeasonEnd)
		scheduler := services.NewScheduler(fetcher, cfg.RefreshSchedule, seasons, cfg.TrackedPlayers, logger)
		if err := scheduler.Start(); err != nil {
			logrus.Errorf("Failed to start refresh scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health check endpoint
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, store, aggregator, fetcher, cfg)

	// WebSocket endpoint at root level (not under /api/v1)
	wsHandler := handlers.NewWebSocketHandler(webSocketHub, cfg.CorsOrigins)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
