package handlers

import (
	"confessly/internal/apperrors"
	"confessly/internal/middleware"
	"confessly/internal/services"
	"confessly/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Accept turns a pending request into an active chat.
func (h *ChatHandler) Accept(c *gin.Context) {
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

	chat, err := h.chatService.AcceptRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, chat)
}

// Active returns the caller's current chat, if any.
func (h *ChatHandler) Active(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	chat, err := h.chatService.ActiveChatForUser(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, chat)
}

// Get loads one chat. Only participants may see it.
func (h *ChatHandler) Get(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	chat, err := h.chatService.GetByID(c.Request.Context(), chatID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	if !chat.IsParticipant(userID) {
		utils.ErrorResponse(c, apperrors.Forbidden("caller is not a participant of this chat"))
		return
	}

	utils.SuccessResponse(c, chat)
}

// SendMessage posts a message into the chat.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	var input struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "body is required")
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), chatID, userID, input.Body)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, message)
}

// Messages pages the chat history, newest first.
func (h *ChatHandler) Messages(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	page, err := h.chatService.Messages(c.Request.Context(), chatID, userID, c.Query("after"), queryLimit(c))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, page)
}

// LatestMessage returns the newest message of the chat.
func (h *ChatHandler) LatestMessage(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	message, err := h.chatService.LatestMessage(c.Request.Context(), chatID, userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, message)
}

// MarkSeen marks the caller's side of the chat as read.
func (h *ChatHandler) MarkSeen(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	chat, err := h.chatService.MarkSeen(c.Request.Context(), chatID, userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, chat)
}

// RequestEnd opens an end negotiation.
func (h *ChatHandler) RequestEnd(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	chat, err := h.chatService.RequestEnd(c.Request.Context(), chatID, userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, chat)
}

// RejectEnd declines the outstanding end negotiation.
func (h *ChatHandler) RejectEnd(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	chat, err := h.chatService.RejectEnd(c.Request.Context(), chatID, userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, chat)
}

// AcceptEnd agrees to end the chat.
func (h *ChatHandler) AcceptEnd(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	chat, err := h.chatService.AcceptEnd(c.Request.Context(), chatID, userID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, chat)
}

// End tears the chat down unilaterally.
func (h *ChatHandler) End(c *gin.Context) {
	userID, chatID, ok := h.chatCall(c)
	if !ok {
		return
	}

	if err := h.chatService.End(c.Request.Context(), chatID, userID); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Chat ended", nil)
}

// chatCall extracts the authenticated caller and the chat id path
// parameter shared by every chat route.
func (h *ChatHandler) chatCall(c *gin.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}

	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid chat id")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}

	return userID, chatID, true
}
