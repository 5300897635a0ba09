package handlers

import (
	"net/http"
	"time"

	"confessly/internal/apperrors"
	"confessly/internal/middleware"
	"confessly/internal/pubsub"
	"confessly/internal/services"
	"confessly/internal/utils"
	"confessly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// Time allowed to write an event to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Subscribers never send payloads, only control frames
	maxClientMessageSize = 512
)

// SubscriptionHandler bridges broker subscriptions onto WebSocket
// connections. Each connection carries exactly one topic; events are
// written as JSON frames in publish order.
type SubscriptionHandler struct {
	chatService *services.ChatService
	broker      *pubsub.Broker
	upgrader    websocket.Upgrader
}

func NewSubscriptionHandler(chatService *services.ChatService, broker *pubsub.Broker) *SubscriptionHandler {
	return &SubscriptionHandler{
		chatService: chatService,
		broker:      broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth happens in middleware before the upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ChatMessages streams new messages of one chat to a participant.
func (h *SubscriptionHandler) ChatMessages(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid chat id")
		return
	}

	// Reuses the read path so expired chats refuse subscribers too.
	chat, err := h.chatService.GetByID(c.Request.Context(), chatID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	if !chat.IsParticipant(userID) {
		utils.ErrorResponse(c, apperrors.Forbidden("caller is not a participant of this chat"))
		return
	}

	h.serve(c, pubsub.ChatMessagesTopic(chatID))
}

// MyChat streams chat lifecycle events addressed to the caller.
func (h *SubscriptionHandler) MyChat(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	h.serve(c, pubsub.UserChatTopic(userID))
}

// MyNotifications streams notification events addressed to the caller.
func (h *SubscriptionHandler) MyNotifications(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	h.serve(c, pubsub.UserNotifSeenTopic(userID))
}

func (h *SubscriptionHandler) serve(c *gin.Context, topic pubsub.Topic) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.LogError(err, "WebSocket upgrade failed", map[string]interface{}{
			"topic": topic.String(),
		})
		return
	}

	sub := h.broker.Subscribe(topic)
	done := make(chan struct{})

	go h.readPump(conn, sub, done)
	h.writePump(conn, sub, done)
}

// readPump discards client frames and watches for disconnection.
func (h *SubscriptionHandler) readPump(conn *websocket.Conn, sub *pubsub.Subscription, done chan struct{}) {
	defer func() {
		sub.Close()
		close(done)
	}()

	conn.SetReadLimit(maxClientMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithFields(map[string]interface{}{
					"topic": sub.Topic().String(),
					"error": err.Error(),
				}).Debug("WebSocket read ended")
			}
			return
		}
	}
}

// writePump forwards broker events to the peer and keeps the
// connection alive with pings.
func (h *SubscriptionHandler) writePump(conn *websocket.Conn, sub *pubsub.Subscription, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return

		case event, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
