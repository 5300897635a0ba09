package services

import (
	"context"
	"fmt"
	"time"

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

// RequestService manages pending confession requests and the
// notifications their arrival produces.
type RequestService struct {
	store         store.Store
	requests      store.Collection
	users         store.Collection
	notifications store.Collection
	broker        *pubsub.Broker
}

func NewRequestService(st store.Store, broker *pubsub.Broker) *RequestService {
	return &RequestService{
		store:         st,
		requests:      st.Collection(store.CollectionRequests),
		users:         st.Collection(store.CollectionUsers),
		notifications: st.Collection(store.CollectionNotifications),
		broker:        broker,
	}
}

// Send creates a pending request from fromID to toID, records a
// notification for the receiver, and flips the receiver's notif-seen
// flag. At most one request may be pending per ordered pair.
func (s *RequestService) Send(ctx context.Context, fromID, toID primitive.ObjectID) (*models.ConfessionRequest, error) {
	if fromID == toID {
		return nil, apperrors.Validation("cannot send a confession request to yourself")
	}

	var receiver models.User
	err := s.users.FindOne(ctx, bson.M{"_id": toID}, &receiver)
	if err == store.ErrNoDocuments {
		return nil, apperrors.NotFound("user %s not found", toID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receiver: %w", err)
	}
	if receiver.RequestsDisabled {
		return nil, apperrors.Forbidden("user %s does not accept confession requests", toID.Hex())
	}

	pending, err := s.HasPending(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperrors.Conflict("a request to this user is already pending")
	}

	request := models.ConfessionRequest{
		AnonymousID: fromID,
		ReceiverID:  toID,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		id, err := s.requests.InsertOne(ctx, request)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		request.ID = id

		notification := models.Notification{
			ReceiverID: toID,
			CreatedAt:  request.CreatedAt,
		}
		if _, err := s.notifications.InsertOne(ctx, notification); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		if _, err := s.users.UpdateOne(ctx, bson.M{"_id": toID}, bson.M{
			"$set": bson.M{"notif_seen": false},
		}); err != nil {
			return fmt.Errorf("failed to flag receiver notifications: %w", err)
		}

		return nil
	})
	if err != nil {
		logger.LogError(err, "Failed to send confession request", map[string]interface{}{
			"from_id": fromID.Hex(),
			"to_id":   toID.Hex(),
		})
		return nil, err
	}

	s.broker.Publish(pubsub.UserNotifSeenTopic(toID), pubsub.EventNotificationCreated, map[string]interface{}{
		"user_id":    toID.Hex(),
		"notif_seen": false,
	})

	return &request, nil
}

// Reject deletes a pending request. Only its receiver may reject it.
func (s *RequestService) Reject(ctx context.Context, requestID, callerID primitive.ObjectID) error {
	var request models.ConfessionRequest
	err := s.requests.FindOne(ctx, bson.M{"_id": requestID}, &request)
	if err == store.ErrNoDocuments {
		return apperrors.NotFound("request %s not found", requestID.Hex())
	}
	if err != nil {
		return fmt.Errorf("failed to load request: %w", err)
	}
	if request.ReceiverID != callerID {
		return apperrors.Forbidden("only the receiver can reject a request")
	}

	deleted, err := s.requests.DeleteOne(ctx, bson.M{"_id": requestID})
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	if deleted == 0 {
		return apperrors.NotFound("request %s not found", requestID.Hex())
	}

	return nil
}

// HasPending reports whether a request from fromID to toID is pending.
func (s *RequestService) HasPending(ctx context.Context, fromID, toID primitive.ObjectID) (bool, error) {
	var existing models.ConfessionRequest
	err := s.requests.FindOne(ctx, bson.M{"anonymous_id": fromID, "receiver_id": toID}, &existing)
	if err == store.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return true, nil
}

// Sent pages the requests a user has sent, newest first.
func (s *RequestService) Sent(ctx context.Context, userID primitive.ObjectID, after string, limit int) (pagination.Connection[models.ConfessionRequest], error) {
	return s.page(ctx, bson.M{"anonymous_id": userID}, after, limit)
}

// Received pages the requests a user has received, newest first.
func (s *RequestService) Received(ctx context.Context, userID primitive.ObjectID, after string, limit int) (pagination.Connection[models.ConfessionRequest], error) {
	return s.page(ctx, bson.M{"receiver_id": userID}, after, limit)
}

func (s *RequestService) page(ctx context.Context, base bson.M, after string, limit int) (pagination.Connection[models.ConfessionRequest], error) {
	var empty pagination.Connection[models.ConfessionRequest]
	limit = pagination.ClampLimit(limit)

	// Total reflects the whole collection, not the remaining window.
	total, err := s.requests.Count(ctx, base)
	if err != nil {
		return empty, fmt.Errorf("failed to count requests: %w", err)
	}

	filter := bson.M{}
	for k, v := range base {
		filter[k] = v
	}
	if after != "" {
		lastID, err := cursor.Decode(after)
		if err != nil {
			return empty, err
		}
		filter["_id"] = bson.M{"$lt": lastID}
	}

	var requests []models.ConfessionRequest
	err = s.requests.Find(ctx, filter, store.FindOptions{
		Sort:  []store.SortField{{Key: "_id", Desc: true}},
		Limit: int64(limit) + 1,
	}, &requests)
	if err != nil {
		return empty, fmt.Errorf("failed to list requests: %w", err)
	}

	return pagination.Build(requests, limit, total, func(r models.ConfessionRequest) primitive.ObjectID {
		return r.ID
	}), nil
}
