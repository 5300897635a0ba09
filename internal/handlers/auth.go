package handlers

import (
	"confessly/internal/config"
	"confessly/internal/middleware"
	"confessly/internal/services"
	"confessly/internal/utils"
	"confessly/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges a profile for a signed session token. Identity
// proofing is the deployment's concern; this service only needs a
// stable user id to key sessions on.
type AuthHandler struct {
	userService *services.UserService
	jwtConfig   config.JWTConfig
}

func NewAuthHandler(userService *services.UserService, jwtConfig config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtConfig:   jwtConfig,
	}
}

// Register creates a profile and returns its session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var input services.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "name is required")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), input)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	token, err := utils.GenerateUserJWT(h.jwtConfig, user.ID.Hex(), user.Name)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	logger.LogUserAction(user.ID.Hex(), "registered", nil)
	utils.CreatedResponse(c, gin.H{
		"user":  user,
		"token": token,
	})
}

// Token issues a fresh session token for an existing profile.
func (h *AuthHandler) Token(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "name is required")
		return
	}

	user, err := h.userService.FindByName(c.Request.Context(), input.Name)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	token, err := utils.GenerateUserJWT(h.jwtConfig, user.ID.Hex(), user.Name)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user":  user,
		"token": token,
	})
}

// Me returns the authenticated caller's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}
