// File: app/app.go
package app

import (
	"context"
	"jobagent-api/config"
	"jobagent-api/db"
	"jobagent-api/handler"
	"jobagent-api/logger"
	"jobagent-api/repository"
	"jobagent-api/router"
	"jobagent-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to redis: %v", err)
	}
	defer redisClient.Close()

	// The signing key is loaded and parsed exactly once, before the server
	// accepts any request. A missing or malformed key is fatal here.
	keyPEM, err := os.ReadFile(config.AppConfig.OAuth.SigningKeyPath)
	if err != nil {
		logger.Log.Fatalf("Error reading signing key: %v", err)
	}
	codec, err := service.NewTokenCodec(
		keyPEM,
		config.AppConfig.OAuth.Issuer,
		config.AppConfig.OAuth.Audience,
		config.AppConfig.OAuth.AccessTokenTTL,
	)
	if err != nil {
		logger.Log.Fatalf("Error initializing token codec: %v", err)
	}

	// --- Wiring All Layers Together ---

	codeRepo := repository.NewCodeRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	tokenRepo := repository.NewTokenRepository(database)
	jobRepo := repository.NewJobRepository(database)
	appRepo := repository.NewApplicationRepository(database)

	publisher := service.NewRedisEventPublisher(redisClient, config.AppConfig.Audit.Stream)

	oauthService := service.NewOAuthService(codeRepo, sessionRepo, tokenRepo, codec, publisher)
	jobService := service.NewJobService(jobRepo)
	applicationService := service.NewApplicationService(appRepo, jobRepo)

	oauthHandler := handler.NewOAuthHandler(oauthService)
	actionHandler := handler.NewActionHandler(jobService, applicationService)
	webhookHandler := handler.NewWebhookHandler(oauthService)

	r := router.NewRouter(oauthHandler, actionHandler, webhookHandler, oauthService)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}
