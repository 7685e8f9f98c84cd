// cmd/auditworker/main.go
package main

import (
	"context"
	"jobagent-api/config"
	"jobagent-api/consumer"
	"jobagent-api/db"
	"jobagent-api/logger"
	"jobagent-api/repository"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Audit worker starting")

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

	auditRepo := repository.NewAuditRepository(database)
	auditConsumer := consumer.NewAuditConsumer(
		redisClient,
		auditRepo,
		config.AppConfig.Audit.Stream,
		config.AppConfig.Audit.Group,
		config.AppConfig.Audit.Consumer,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Warn("Shutdown signal received. Stopping audit consumer...")
		cancel()
	}()

	if err := auditConsumer.Run(ctx); err != nil {
		logger.Log.Fatalf("Audit consumer terminated: %v", err)
	}

	logger.Log.Info("Audit worker exited properly")
}
