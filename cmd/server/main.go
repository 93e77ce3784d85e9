package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tahmied/arterest/internal/config"
	"github.com/Tahmied/arterest/internal/database"
	"github.com/Tahmied/arterest/internal/handlers"
	"github.com/Tahmied/arterest/internal/middleware"
	"github.com/Tahmied/arterest/internal/models"
	"github.com/Tahmied/arterest/internal/realtime"
	"github.com/Tahmied/arterest/internal/routes"
	"github.com/Tahmied/arterest/internal/services"
	apperrors "github.com/Tahmied/arterest/pkg/errors"
	"github.com/Tahmied/arterest/pkg/logger"
)

func main() {
	config.LoadConfig()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting Arterest Backend...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect()
	database.InitRedis()

	logger.Info().Msg("Running database migrations...")
	if err := database.DB.AutoMigrate(
		&models.User{},
		&models.Pin{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	logger.Info().Msg("Database migrations complete")

	// Realtime gateway: presence registry built at process start, rebuilt
	// empty on every restart. Clients re-authenticate and re-join rooms.
	presence := realtime.NewPresence()
	gateway := realtime.NewGateway(presence)
	go func() {
		if err := gateway.Serve(); err != nil {
			logger.Error().Err(err).Msg("socket server stopped")
		}
	}()
	defer gateway.Close()

	conversationService := services.NewConversationService(database.DB)
	messageService := services.NewMessageService(database.DB, gateway)
	notificationService := services.NewNotificationService(database.DB, gateway)
	handler := handlers.New(conversationService, messageService, notificationService)

	r := gin.New()

	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.SecurityHeaders())

	// Exempt the socket transport from rate limiting; long-polling clients
	// would burn the budget immediately.
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/socket.io/") {
			c.Next()
			return
		}
		middleware.GeneralRateLimit()(c)
	})

	api := r.Group("/api")
	{
		routes.RegisterConversationRoutes(api, handler)
		routes.RegisterNotificationRoutes(api, handler)
	}

	// Socket transport (websocket with polling fallback)
	r.GET("/socket.io/*any", gin.WrapH(gateway))
	r.POST("/socket.io/*any", gin.WrapH(gateway))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(apperrors.ErrNotFound.Code, gin.H{"error": apperrors.ErrNotFound.Message})
	})

	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		redisStatus := "ok"

		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "error"
		}

		if database.Redis != nil {
			if _, err := database.Redis.Ping(context.Background()).Result(); err != nil {
				redisStatus = "error"
			}
		} else {
			redisStatus = "not configured"
		}

		status := "ok"
		if dbStatus != "ok" || (redisStatus != "ok" && redisStatus != "not configured") {
			status = "degraded"
		}

		c.JSON(200, gin.H{
			"status": status,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	})

	port := config.AppConfig.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
