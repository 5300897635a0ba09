package middleware

import (
	"strings"

	"confessly/internal/config"
	"confessly/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionAuth validates the bearer token and stores the caller's id in
// the gin context. WebSocket clients cannot set headers, so the token
// is also accepted as a session_token query parameter.
func SessionAuth(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			sessionToken := c.Query("session_token")
			if sessionToken == "" {
				utils.UnauthorizedResponse(c, "Missing session token")
				c.Abort()
				return
			}
			authHeader = "Bearer " + sessionToken
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.UnauthorizedResponse(c, "Invalid token format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateUserJWT(cfg, tokenString)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid session token")
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid session token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("user_name", claims.Name)
		c.Next()
	}
}

// CurrentUserID reads the authenticated caller set by SessionAuth.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, false
	}
	userID, ok := value.(primitive.ObjectID)
	return userID, ok
}
