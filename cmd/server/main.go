package main

import (
	"context"
	"log"
	"net/http"

	"confessly/internal/config"
	"confessly/internal/pubsub"
	"confessly/internal/ratelimit"
	"confessly/internal/routes"
	"confessly/internal/store"
	"confessly/pkg/database"
	"confessly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger.Init()
	cfg := config.Load()

	if err := database.InitMongoDB(cfg.Mongo); err != nil {
		logger.Fatal("Failed to connect to MongoDB: " + err.Error())
	}
	defer database.Disconnect()

	st := store.NewMongoStore(database.GetClient(), database.GetDatabase())
	broker := pubsub.NewBroker()
	limiter := ratelimit.NewLimiter(cfg.RateLimit.Rules())

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	chatService := routes.SetupRoutes(router, cfg, st, broker, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chatService.StartExpirySweep(ctx, cfg.Chat.SweepInterval)

	// No WriteTimeout: WebSocket subscriptions outlive any fixed
	// deadline and enforce their own per-frame write deadlines.
	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	logger.Info("Server starting on port: " + cfg.App.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Failed to start server: " + err.Error())
	}
}
