package routes

import (
	"confessly/internal/config"
	"confessly/internal/handlers"
	"confessly/internal/middleware"
	"confessly/internal/pubsub"
	"confessly/internal/ratelimit"
	"confessly/internal/services"
	"confessly/internal/store"
	"confessly/pkg/database"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires every HTTP and WebSocket endpoint.
func SetupRoutes(router *gin.Engine, cfg *config.Config, st store.Store, broker *pubsub.Broker, limiter *ratelimit.Limiter) *services.ChatService {
	userService := services.NewUserService(st)
	requestService := services.NewRequestService(st, broker)
	chatService := services.NewChatService(st, broker, cfg.Chat.TTL)
	notificationService := services.NewNotificationService(st, broker)

	authHandler := handlers.NewAuthHandler(userService, cfg.JWT)
	userHandler := handlers.NewUserHandler(userService)
	requestHandler := handlers.NewRequestHandler(requestService)
	chatHandler := handlers.NewChatHandler(chatService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	subscriptionHandler := handlers.NewSubscriptionHandler(chatService, broker)

	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		mongoHealth := database.HealthCheck()
		status := 200
		if mongoHealth["status"] != "connected" {
			status = 503
		}
		c.JSON(status, gin.H{
			"status": "ok",
			"mongo":  mongoHealth,
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/token", authHandler.Token)
		}

		protected := v1.Group("/")
		protected.Use(middleware.SessionAuth(cfg.JWT))
		{
			protected.GET("/me", authHandler.Me)

			users := protected.Group("/users")
			{
				users.GET("/search", userHandler.Search)
				users.GET("/by-name/:name", userHandler.GetUserByName)
				users.GET("/:id", userHandler.GetUser)
				users.PUT("/me",
					middleware.RateLimit(limiter, ratelimit.ActionEditProfile),
					userHandler.UpdateProfile)
				users.POST("/me/tag", userHandler.CreateUniqueTag)
			}

			requests := protected.Group("/requests")
			{
				requests.POST("",
					middleware.RateLimit(limiter, ratelimit.ActionSendRequest),
					requestHandler.Send)
				requests.GET("/sent", requestHandler.Sent)
				requests.GET("/received", requestHandler.Received)
				requests.GET("/pending/:user_id", requestHandler.Pending)
				requests.POST("/:id/accept", chatHandler.Accept)
				requests.DELETE("/:id", requestHandler.Reject)
			}

			chats := protected.Group("/chats")
			{
				chats.GET("/active", chatHandler.Active)
				chats.GET("/:id", chatHandler.Get)
				chats.DELETE("/:id", chatHandler.End)
				chats.POST("/:id/messages",
					middleware.RateLimit(limiter, ratelimit.ActionSendMessage),
					chatHandler.SendMessage)
				chats.GET("/:id/messages", chatHandler.Messages)
				chats.GET("/:id/messages/latest", chatHandler.LatestMessage)
				chats.POST("/:id/seen", chatHandler.MarkSeen)
				chats.POST("/:id/end/request",
					middleware.RateLimit(limiter, ratelimit.ActionEndNegotiate),
					chatHandler.RequestEnd)
				chats.POST("/:id/end/reject",
					middleware.RateLimit(limiter, ratelimit.ActionRejectNegotiate),
					chatHandler.RejectEnd)
				chats.POST("/:id/end/accept", chatHandler.AcceptEnd)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", notificationHandler.List)
				notifications.POST("/seen", notificationHandler.MarkSeen)
				notifications.DELETE("/:id", notificationHandler.Delete)
			}

			ws := protected.Group("/ws")
			{
				ws.GET("/chats/:id/messages", subscriptionHandler.ChatMessages)
				ws.GET("/me/chat", subscriptionHandler.MyChat)
				ws.GET("/me/notifications", subscriptionHandler.MyNotifications)
			}
		}
	}

	return chatService
}
