package services

import (
	"context"
	"fmt"

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

// NotificationService maintains the per-user notification read model.
// Notifications are created by RequestService when a request arrives;
// this service covers listing, dismissal, and the seen flag.
type NotificationService struct {
	notifications store.Collection
	users         store.Collection
	broker        *pubsub.Broker
}

func NewNotificationService(st store.Store, broker *pubsub.Broker) *NotificationService {
	return &NotificationService{
		notifications: st.Collection(store.CollectionNotifications),
		users:         st.Collection(store.CollectionUsers),
		broker:        broker,
	}
}

// MarkSeen flips the user's notification flag to seen and notifies
// their listening devices.
func (s *NotificationService) MarkSeen(ctx context.Context, userID primitive.ObjectID) error {
	matched, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"notif_seen": true},
	})
	if err != nil {
		return fmt.Errorf("failed to mark notifications seen: %w", err)
	}
	if matched == 0 {
		return apperrors.NotFound("user %s not found", userID.Hex())
	}

	s.broker.Publish(pubsub.UserNotifSeenTopic(userID), pubsub.EventNotificationsSeen, true)
	logger.LogUserAction(userID.Hex(), "notifications_seen", nil)
	return nil
}

// Delete dismisses a single notification. Only its receiver may do so.
func (s *NotificationService) Delete(ctx context.Context, notificationID, callerID primitive.ObjectID) error {
	var notification models.Notification
	err := s.notifications.FindOne(ctx, bson.M{"_id": notificationID}, &notification)
	if err == store.ErrNoDocuments {
		return apperrors.NotFound("notification %s not found", notificationID.Hex())
	}
	if err != nil {
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if notification.ReceiverID != callerID {
		return apperrors.Forbidden("only the receiver can dismiss a notification")
	}

	if _, err := s.notifications.DeleteOne(ctx, bson.M{"_id": notificationID}); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// List pages the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID, after string, limit int) (pagination.Connection[models.Notification], error) {
	var empty pagination.Connection[models.Notification]

	limit = pagination.ClampLimit(limit)
	base := bson.M{"receiver_id": userID}

	total, err := s.notifications.Count(ctx, base)
	if err != nil {
		return empty, fmt.Errorf("failed to count notifications: %w", err)
	}

	filter := bson.M{"receiver_id": userID}
	if after != "" {
		lastID, err := cursor.Decode(after)
		if err != nil {
			return empty, err
		}
		filter["_id"] = bson.M{"$lt": lastID}
	}

	var notifications []models.Notification
	err = s.notifications.Find(ctx, filter, store.FindOptions{
		Sort:  []store.SortField{{Key: "_id", Desc: true}},
		Limit: int64(limit) + 1,
	}, &notifications)
	if err != nil {
		return empty, fmt.Errorf("failed to list notifications: %w", err)
	}

	return pagination.Build(notifications, limit, total, func(n models.Notification) primitive.ObjectID {
		return n.ID
	}), nil
}
