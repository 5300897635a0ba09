package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"confessly/internal/apperrors"
	"confessly/internal/cursor"
	"confessly/internal/models"
	"confessly/internal/pagination"
	"confessly/internal/pubsub"
	"confessly/internal/store"
	"confessly/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxMessageLength = 2000

// ChatService owns the session lifecycle: request acceptance, message
// exchange, the end-negotiation protocol, and teardown. Every
// multi-record transition runs inside a store transaction so a lost
// race or mid-step failure leaves no partial state.
type ChatService struct {
	store    store.Store
	chats    store.Collection
	messages store.Collection
	users    store.Collection
	requests store.Collection
	broker   *pubsub.Broker
	ttl      time.Duration

	// now is swappable for tests.
	now func() time.Time
}

func NewChatService(st store.Store, broker *pubsub.Broker, ttl time.Duration) *ChatService {
	return &ChatService{
		store:    st,
		chats:    st.Collection(store.CollectionChats),
		messages: st.Collection(store.CollectionMessages),
		users:    st.Collection(store.CollectionUsers),
		requests: st.Collection(store.CollectionRequests),
		broker:   broker,
		ttl:      ttl,
		now:      time.Now,
	}
}

// AcceptRequest turns a pending request into an active chat. The
// request is deleted, the chat created, and both participants'
// active-chat pointers set in one transaction. Under a double accept
// the request deletion decides the winner; the loser sees NotFound.
func (s *ChatService) AcceptRequest(ctx context.Context, requestID, callerID primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var request models.ConfessionRequest
		err := s.requests.FindOne(ctx, bson.M{"_id": requestID}, &request)
		if err == store.ErrNoDocuments {
			return apperrors.NotFound("request %s not found", requestID.Hex())
		}
		if err != nil {
			return fmt.Errorf("failed to load request: %w", err)
		}
		if request.ReceiverID != callerID {
			return apperrors.Forbidden("only the receiver can accept a request")
		}

		var participants []models.User
		err = s.users.Find(ctx, bson.M{
			"_id": bson.M{"$in": []primitive.ObjectID{request.AnonymousID, request.ReceiverID}},
		}, store.FindOptions{}, &participants)
		if err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		if len(participants) != 2 {
			return apperrors.NotFound("a participant no longer exists")
		}
		for _, participant := range participants {
			if participant.ActiveChat != nil {
				return apperrors.Conflict("user %s is already in a chat", participant.ID.Hex())
			}
		}

		deleted, err := s.requests.DeleteOne(ctx, bson.M{"_id": requestID})
		if err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}
		if deleted == 0 {
			// Another accept got here first.
			return apperrors.NotFound("request %s not found", requestID.Hex())
		}

		now := s.now().UTC()
		chat = models.Chat{
			AnonymousID: request.AnonymousID,
			ConfesseeID: request.ReceiverID,
			Status:      models.ChatStatusActive,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		}
		chatID, err := s.chats.InsertOne(ctx, chat)
		if err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}
		chat.ID = chatID

		if _, err := s.users.UpdateMany(ctx, bson.M{
			"_id": bson.M{"$in": []primitive.ObjectID{chat.AnonymousID, chat.ConfesseeID}},
		}, bson.M{
			"$set": bson.M{"active_chat": chatID},
		}); err != nil {
			return fmt.Errorf("failed to set active chat pointers: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogChatEvent("chat_started", chat.ID.Hex(), callerID.Hex(), nil)
	s.publishToParticipants(&chat, pubsub.EventChatStarted)

	return &chat, nil
}

// GetByID loads a chat, applying the expiry cascade lazily: a chat
// whose TTL has passed is torn down on read and reported as missing.
func (s *ChatService) GetByID(ctx context.Context, chatID primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	err := s.chats.FindOne(ctx, bson.M{"_id": chatID}, &chat)
	if err == store.ErrNoDocuments {
		return nil, apperrors.NotFound("chat %s not found", chatID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	if chat.Expired(s.now()) {
		if err := s.teardown(ctx, &chat); err != nil {
			return nil, err
		}
		return nil, apperrors.NotFound("chat %s not found", chatID.Hex())
	}

	return &chat, nil
}

// ActiveChatForUser returns the user's current chat, if any.
func (s *ChatService) ActiveChatForUser(ctx context.Context, userID primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	err := s.chats.FindOne(ctx, bson.M{
		"$or": []bson.M{
			{"anonymous_id": userID},
			{"confessee_id": userID},
		},
	}, &chat)
	if err == store.ErrNoDocuments {
		return nil, apperrors.NotFound("no active chat for user %s", userID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active chat: %w", err)
	}

	if chat.Expired(s.now()) {
		if err := s.teardown(ctx, &chat); err != nil {
			return nil, err
		}
		return nil, apperrors.NotFound("no active chat for user %s", userID.Hex())
	}

	return &chat, nil
}

// SendMessage appends a message and flips the seen flags: the sender's
// side is marked seen, the other side unseen.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID primitive.ObjectID, body string) (*models.Message, error) {
	if body == "" {
		return nil, apperrors.Validation("message body must not be empty")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, apperrors.Validation("message body exceeds %d characters", maxMessageLength)
	}

	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(senderID) {
		return nil, apperrors.Forbidden("sender is not a participant of this chat")
	}
	if chat.Status != models.ChatStatusActive {
		return nil, apperrors.Conflict("chat has ended")
	}
	if chat.EndNegotiation.Requesting {
		return nil, apperrors.Conflict("an end negotiation is in progress")
	}

	fromAnonymous := senderID == chat.AnonymousID
	message := models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Body:      body,
		Anonymous: fromAnonymous,
		CreatedAt: s.now().UTC(),
		ExpiresAt: chat.ExpiresAt,
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		id, err := s.messages.InsertOne(ctx, message)
		if err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}
		message.ID = id

		if _, err := s.chats.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{
			"$set": bson.M{
				"anon_seen":      fromAnonymous,
				"confessee_seen": !fromAnonymous,
			},
		}); err != nil {
			return fmt.Errorf("failed to update seen flags: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	chat.AnonSeen = fromAnonymous
	chat.ConfesseeSeen = !fromAnonymous

	s.broker.Publish(pubsub.ChatMessagesTopic(chatID), pubsub.EventMessageCreated, message)
	s.publishToParticipants(chat, pubsub.EventChatUpdated)

	return &message, nil
}

// MarkSeen marks the caller's side of the chat as seen.
func (s *ChatService) MarkSeen(ctx context.Context, chatID, callerID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(callerID) {
		return nil, apperrors.Forbidden("caller is not a participant of this chat")
	}

	field := "confessee_seen"
	if callerID == chat.AnonymousID {
		field = "anon_seen"
	}

	if _, err := s.chats.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{
		"$set": bson.M{field: true},
	}); err != nil {
		return nil, fmt.Errorf("failed to mark chat seen: %w", err)
	}

	if field == "anon_seen" {
		chat.AnonSeen = true
	} else {
		chat.ConfesseeSeen = true
	}

	s.publishToParticipants(chat, pubsub.EventChatUpdated)
	return chat, nil
}

// RequestEnd opens an end negotiation and posts the system message
// announcing it. Only one negotiation may be outstanding: the state
// guard lives in the update filter, so a lost race leaves exactly one
// opened negotiation and one system message.
func (s *ChatService) RequestEnd(ctx context.Context, chatID, requesterID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(requesterID) {
		return nil, apperrors.Forbidden("caller is not a participant of this chat")
	}
	if chat.Status != models.ChatStatusActive {
		return nil, apperrors.Conflict("chat has already ended")
	}
	if chat.EndNegotiation.Requesting {
		return nil, apperrors.Conflict("an end negotiation is already in progress")
	}

	message := s.systemMessage(chat, requesterID, "requested to end the chat")

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		matched, err := s.chats.UpdateOne(ctx, bson.M{
			"_id":                        chatID,
			"status":                     models.ChatStatusActive,
			"end_negotiation.requesting": false,
		}, bson.M{
			"$set": bson.M{
				"end_negotiation.requesting":   true,
				"end_negotiation.requester_id": requesterID,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to open end negotiation: %w", err)
		}
		if matched == 0 {
			// A concurrent caller opened a negotiation or ended the
			// chat after the pre-check.
			return apperrors.Conflict("an end negotiation is already in progress")
		}

		id, err := s.messages.InsertOne(ctx, message)
		if err != nil {
			return fmt.Errorf("failed to post end-request message: %w", err)
		}
		message.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	chat.EndNegotiation.Requesting = true
	chat.EndNegotiation.RequesterID = &requesterID

	logger.LogChatEvent("end_requested", chatID.Hex(), requesterID.Hex(), nil)
	s.broker.Publish(pubsub.ChatMessagesTopic(chatID), pubsub.EventMessageCreated, message)
	s.publishToParticipants(chat, pubsub.EventChatUpdated)

	return chat, nil
}

// RejectEnd declines an outstanding end negotiation, returning the
// chat to active with the attempt counted.
func (s *ChatService) RejectEnd(ctx context.Context, chatID, callerID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.negotiationResponder(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}

	message := s.systemMessage(chat, callerID, "declined to end the chat")

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		matched, err := s.chats.UpdateOne(ctx, negotiationAnswerFilter(chatID, callerID), bson.M{
			"$set":   bson.M{"end_negotiation.requesting": false},
			"$unset": bson.M{"end_negotiation.requester_id": ""},
			"$inc":   bson.M{"end_negotiation.attempts": 1},
		})
		if err != nil {
			return fmt.Errorf("failed to reject end negotiation: %w", err)
		}
		if matched == 0 {
			return apperrors.Conflict("no end negotiation is in progress")
		}

		id, err := s.messages.InsertOne(ctx, message)
		if err != nil {
			return fmt.Errorf("failed to post rejection message: %w", err)
		}
		message.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	chat.EndNegotiation.Requesting = false
	chat.EndNegotiation.RequesterID = nil
	chat.EndNegotiation.Attempts++

	logger.LogChatEvent("end_rejected", chatID.Hex(), callerID.Hex(), map[string]interface{}{
		"attempts": chat.EndNegotiation.Attempts,
	})
	s.broker.Publish(pubsub.ChatMessagesTopic(chatID), pubsub.EventMessageCreated, message)
	s.publishToParticipants(chat, pubsub.EventChatUpdated)

	return chat, nil
}

// AcceptEnd agrees to end the chat. The chat is only marked ended; the
// record survives until endChat (or the sweep) tears it down, so
// clients can acknowledge before the data disappears.
func (s *ChatService) AcceptEnd(ctx context.Context, chatID, callerID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.negotiationResponder(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}

	matched, err := s.chats.UpdateOne(ctx, negotiationAnswerFilter(chatID, callerID), bson.M{
		"$set": bson.M{
			"status":                     models.ChatStatusEnded,
			"end_negotiation.requesting": false,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept end negotiation: %w", err)
	}
	if matched == 0 {
		return nil, apperrors.Conflict("no end negotiation is in progress")
	}

	chat.Status = models.ChatStatusEnded
	chat.EndNegotiation.Requesting = false

	logger.LogChatEvent("end_accepted", chatID.Hex(), callerID.Hex(), nil)
	s.publishToParticipants(chat, pubsub.EventChatUpdated)

	return chat, nil
}

// negotiationAnswerFilter matches a chat only while its negotiation is
// still open to an answer from callerID. The answering update must use
// it so that concurrent answers have exactly one winner; losers see no
// match and report Conflict.
func negotiationAnswerFilter(chatID, callerID primitive.ObjectID) bson.M {
	return bson.M{
		"_id":                          chatID,
		"end_negotiation.requesting":   true,
		"end_negotiation.requester_id": bson.M{"$ne": callerID},
	}
}

// negotiationResponder validates that the caller may answer the
// outstanding end negotiation. It exists for precise error reporting;
// the race-proof guard is negotiationAnswerFilter.
func (s *ChatService) negotiationResponder(ctx context.Context, chatID, callerID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(callerID) {
		return nil, apperrors.Forbidden("caller is not a participant of this chat")
	}
	if !chat.EndNegotiation.Requesting {
		return nil, apperrors.Conflict("no end negotiation is in progress")
	}
	if chat.EndNegotiation.RequesterID != nil && *chat.EndNegotiation.RequesterID == callerID {
		return nil, apperrors.Forbidden("the requester cannot answer their own end request")
	}
	return chat, nil
}

// End tears a chat down unilaterally: all its messages are deleted,
// both participants' active-chat pointers cleared, and the chat record
// removed, in one transaction.
func (s *ChatService) End(ctx context.Context, chatID, callerID primitive.ObjectID) error {
	var chat models.Chat
	err := s.chats.FindOne(ctx, bson.M{"_id": chatID}, &chat)
	if err == store.ErrNoDocuments {
		return apperrors.NotFound("chat %s not found", chatID.Hex())
	}
	if err != nil {
		return fmt.Errorf("failed to load chat: %w", err)
	}
	if !chat.IsParticipant(callerID) {
		return apperrors.Forbidden("caller is not a participant of this chat")
	}

	return s.teardown(ctx, &chat)
}

func (s *ChatService) teardown(ctx context.Context, chat *models.Chat) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.messages.DeleteMany(ctx, bson.M{"chat_id": chat.ID}); err != nil {
			return fmt.Errorf("failed to delete chat messages: %w", err)
		}

		if _, err := s.users.UpdateMany(ctx, bson.M{"active_chat": chat.ID}, bson.M{
			"$unset": bson.M{"active_chat": ""},
		}); err != nil {
			return fmt.Errorf("failed to clear active chat pointers: %w", err)
		}

		if _, err := s.chats.DeleteOne(ctx, bson.M{"_id": chat.ID}); err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.LogError(err, "Failed to tear down chat", map[string]interface{}{
			"chat_id": chat.ID.Hex(),
		})
		return err
	}

	logger.LogChatEvent("chat_ended", chat.ID.Hex(), "", nil)
	s.publishToParticipants(chat, pubsub.EventChatEnded)
	return nil
}

// Messages pages a chat's messages, newest first. Only participants
// may read them.
func (s *ChatService) Messages(ctx context.Context, chatID, callerID primitive.ObjectID, after string, limit int) (pagination.Connection[models.Message], error) {
	var empty pagination.Connection[models.Message]

	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return empty, err
	}
	if !chat.IsParticipant(callerID) {
		return empty, apperrors.Forbidden("caller is not a participant of this chat")
	}

	limit = pagination.ClampLimit(limit)
	base := bson.M{"chat_id": chatID}

	total, err := s.messages.Count(ctx, base)
	if err != nil {
		return empty, fmt.Errorf("failed to count messages: %w", err)
	}

	filter := bson.M{"chat_id": chatID}
	if after != "" {
		lastID, err := cursor.Decode(after)
		if err != nil {
			return empty, err
		}
		filter["_id"] = bson.M{"$lt": lastID}
	}

	var messages []models.Message
	err = s.messages.Find(ctx, filter, store.FindOptions{
		Sort:  []store.SortField{{Key: "_id", Desc: true}},
		Limit: int64(limit) + 1,
	}, &messages)
	if err != nil {
		return empty, fmt.Errorf("failed to list messages: %w", err)
	}

	return pagination.Build(messages, limit, total, func(m models.Message) primitive.ObjectID {
		return m.ID
	}), nil
}

// LatestMessage returns the newest message of a chat, or NotFound for
// an empty chat.
func (s *ChatService) LatestMessage(ctx context.Context, chatID, callerID primitive.ObjectID) (*models.Message, error) {
	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(callerID) {
		return nil, apperrors.Forbidden("caller is not a participant of this chat")
	}

	var messages []models.Message
	err = s.messages.Find(ctx, bson.M{"chat_id": chatID}, store.FindOptions{
		Sort:  []store.SortField{{Key: "_id", Desc: true}},
		Limit: 1,
	}, &messages)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest message: %w", err)
	}
	if len(messages) == 0 {
		return nil, apperrors.NotFound("chat %s has no messages", chatID.Hex())
	}

	return &messages[0], nil
}

// SweepExpired tears down every chat whose TTL has passed. Returns the
// number of chats removed.
func (s *ChatService) SweepExpired(ctx context.Context) (int, error) {
	var expired []models.Chat
	err := s.chats.Find(ctx, bson.M{
		"expires_at": bson.M{"$lt": s.now()},
	}, store.FindOptions{}, &expired)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired chats: %w", err)
	}

	swept := 0
	for i := range expired {
		if err := s.teardown(ctx, &expired[i]); err != nil {
			logger.LogError(err, "Expiry sweep failed for chat", map[string]interface{}{
				"chat_id": expired[i].ID.Hex(),
			})
			continue
		}
		swept++
	}

	return swept, nil
}

// StartExpirySweep runs SweepExpired on a ticker until ctx is
// cancelled.
func (s *ChatService) StartExpirySweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				swept, err := s.SweepExpired(ctx)
				if err != nil {
					logger.LogError(err, "Expiry sweep failed", nil)
					continue
				}
				if swept > 0 {
					logger.Infof("Expiry sweep removed %d chats", swept)
				}
			}
		}
	}()
}

func (s *ChatService) systemMessage(chat *models.Chat, senderID primitive.ObjectID, body string) models.Message {
	return models.Message{
		ChatID:       chat.ID,
		SenderID:     senderID,
		Body:         body,
		Anonymous:    senderID == chat.AnonymousID,
		IsEndRequest: true,
		CreatedAt:    s.now().UTC(),
		ExpiresAt:    chat.ExpiresAt,
	}
}

func (s *ChatService) publishToParticipants(chat *models.Chat, eventType string) {
	s.broker.Publish(pubsub.UserChatTopic(chat.AnonymousID), eventType, chat)
	s.broker.Publish(pubsub.UserChatTopic(chat.ConfesseeID), eventType, chat)
}
