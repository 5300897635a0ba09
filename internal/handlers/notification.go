package handlers

import (
	"confessly/internal/middleware"
	"confessly/internal/services"
	"confessly/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List pages the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	page, err := h.notificationService.List(c.Request.Context(), userID, c.Query("after"), queryLimit(c))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, page)
}

// MarkSeen flips the caller's notification flag to seen.
func (h *NotificationHandler) MarkSeen(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	if err := h.notificationService.MarkSeen(c.Request.Context(), userID); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Notifications marked seen", nil)
}

// Delete dismisses one notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid notification id")
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), notificationID, userID); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Notification dismissed", nil)
}
