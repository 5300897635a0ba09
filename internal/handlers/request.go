package handlers

import (
	"strconv"

	"confessly/internal/middleware"
	"confessly/internal/services"
	"confessly/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestHandler struct {
	requestService *services.RequestService
}

func NewRequestHandler(requestService *services.RequestService) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
	}
}

// Send creates a pending confession request to another user.
func (h *RequestHandler) Send(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var input struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "receiver_id is required")
		return
	}

	receiverID, err := primitive.ObjectIDFromHex(input.ReceiverID)
	if err != nil {
		utils.BadRequestResponse(c, "invalid receiver id")
		return
	}

	request, err := h.requestService.Send(c.Request.Context(), userID, receiverID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, request)
}

// Reject deletes a pending request addressed to the caller.
func (h *RequestHandler) Reject(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid request id")
		return
	}

	if err := h.requestService.Reject(c.Request.Context(), requestID, userID); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Request rejected", nil)
}

// Pending reports whether the caller already has a request pending to
// the given user.
func (h *RequestHandler) Pending(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	receiverID, err := primitive.ObjectIDFromHex(c.Param("user_id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid user id")
		return
	}

	pending, err := h.requestService.HasPending(c.Request.Context(), userID, receiverID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"pending": pending})
}

// Sent pages the caller's outgoing requests.
func (h *RequestHandler) Sent(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	page, err := h.requestService.Sent(c.Request.Context(), userID, c.Query("after"), queryLimit(c))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, page)
}

// Received pages the caller's incoming requests.
func (h *RequestHandler) Received(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	page, err := h.requestService.Received(c.Request.Context(), userID, c.Query("after"), queryLimit(c))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, page)
}

// queryLimit parses the page-size query parameter. Out-of-range values
// are clamped downstream.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		return 0
	}
	return limit
}
