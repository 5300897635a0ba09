package handlers

import (
	"confessly/internal/middleware"
	"confessly/internal/services"
	"confessly/internal/utils"
	"confessly/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetUser returns a user's public profile.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid user id")
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// GetUserByName resolves a profile by its exact display name.
func (h *UserHandler) GetUserByName(c *gin.Context) {
	user, err := h.userService.FindByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// UpdateProfile applies a partial edit to the caller's profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var input services.EditUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "invalid profile payload")
		return
	}

	user, err := h.userService.EditUser(c.Request.Context(), userID, input)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	logger.LogUserAction(userID.Hex(), "profile_updated", nil)
	utils.SuccessResponse(c, user)
}

// CreateUniqueTag re-tags the caller's display name with a random
// numeric suffix.
func (h *UserHandler) CreateUniqueTag(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "name is required")
		return
	}

	tagged, err := h.userService.CreateUniqueTag(c.Request.Context(), userID, input.Name)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"name": tagged})
}

// Search finds users by case-insensitive name prefix.
func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.userService.SearchByNamePrefix(c.Request.Context(), c.Query("key"))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, users)
}
