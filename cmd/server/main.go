package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"lan_messenger/internal/config"
	"lan_messenger/internal/handler"
	"lan_messenger/internal/hub"
	"lan_messenger/internal/middleware"
	"lan_messenger/internal/repository"
	"lan_messenger/internal/service"
	"lan_messenger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	if err := repository.InitSchema(context.Background(), dbPool); err != nil {
		appLogger.Fatal("Failed to initialize schema", "error", err)
	}

	// Redis is optional. Without it the rate limiter runs in process,
	// which is fine for a single-node LAN deployment.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established")
	} else {
		appLogger.Info("Redis not configured, using in-process rate limiter")
	}

	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	services, err := service.NewServices(repos, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize services", "error", err)
	}

	chatHub := hub.New(appLogger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, repos, chatHub, cfg, appLogger)

	router := setupRouter(handlers, rateLimitMiddleware, services.Media, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "host", config.GetLocalIP(), "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	media service.MediaService,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Websocket writes are long lived, so the http.Server write timeout
	// must not apply to them. gin leaves hijacked connections alone.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)
	router.GET("/server-info", handlers.Health.ServerInfo)

	router.GET("/ws", handlers.WebSocket.Handle)

	router.POST("/upload", rateLimitMiddleware.Limit(), handlers.Upload.Upload)

	api := router.Group("/api")
	api.Use(rateLimitMiddleware.Limit())
	{
		api.GET("/media", handlers.Media.Gallery)
		api.POST("/cleanup-orphans", handlers.Media.CleanupOrphans)
		api.GET("/storage-stats", handlers.Media.StorageStats)
	}

	static := router.Group("")
	static.Use(handler.NoDotfiles())
	{
		static.Static("/media", media.MediaRoot())
		static.Static("/thumbs", media.ThumbRoot())
	}

	return router
}
