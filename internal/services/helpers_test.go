package services

import (
	"context"
	"testing"
	"time"

	"confessly/internal/models"
	"confessly/internal/pubsub"
	"confessly/internal/store"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testChatTTL = 48 * time.Hour

type testEnv struct {
	st            *store.MemStore
	broker        *pubsub.Broker
	users         *UserService
	requests      *RequestService
	chats         *ChatService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemStore()
	broker := pubsub.NewBroker()

	return &testEnv{
		st:            st,
		broker:        broker,
		users:         NewUserService(st),
		requests:      NewRequestService(st, broker),
		chats:         NewChatService(st, broker, testChatTTL),
		notifications: NewNotificationService(st, broker),
	}
}

func (e *testEnv) seedUser(t *testing.T, name string) primitive.ObjectID {
	t.Helper()

	user, err := e.users.CreateUser(context.Background(), CreateUserInput{Name: name})
	require.NoError(t, err)
	return user.ID
}

// startChat walks the request/accept flow between two seeded users.
func (e *testEnv) startChat(t *testing.T, anonID, confesseeID primitive.ObjectID) *models.Chat {
	t.Helper()

	ctx := context.Background()
	request, err := e.requests.Send(ctx, anonID, confesseeID)
	require.NoError(t, err)

	chat, err := e.chats.AcceptRequest(ctx, request.ID, confesseeID)
	require.NoError(t, err)
	return chat
}

func recvEvent(t *testing.T, sub *pubsub.Subscription) pubsub.Event {
	t.Helper()

	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed before event arrived")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return pubsub.Event{}
	}
}
