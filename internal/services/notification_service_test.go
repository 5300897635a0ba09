package services

import (
	"context"
	"fmt"
	"testing"

	"confessly/internal/apperrors"
	"confessly/internal/pubsub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMarkNotificationsSeen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")

	_, err := env.requests.Send(ctx, anon, confessee)
	require.NoError(t, err)

	receiver, err := env.users.FindByID(ctx, confessee)
	require.NoError(t, err)
	require.False(t, receiver.NotifSeen)

	sub := env.broker.Subscribe(pubsub.UserNotifSeenTopic(confessee))
	defer sub.Close()

	require.NoError(t, env.notifications.MarkSeen(ctx, confessee))

	receiver, err = env.users.FindByID(ctx, confessee)
	require.NoError(t, err)
	assert.True(t, receiver.NotifSeen)

	ev := recvEvent(t, sub)
	assert.Equal(t, pubsub.EventNotificationsSeen, ev.Type)

	err = env.notifications.MarkSeen(ctx, primitive.NewObjectID())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestDeleteNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")

	_, err := env.requests.Send(ctx, anon, confessee)
	require.NoError(t, err)

	page, err := env.notifications.List(ctx, confessee, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Edges, 1)
	notifID := page.Edges[0].ID

	err = env.notifications.Delete(ctx, notifID, anon)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	require.NoError(t, env.notifications.Delete(ctx, notifID, confessee))

	err = env.notifications.Delete(ctx, notifID, confessee)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	page, err = env.notifications.List(ctx, confessee, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Edges)
}

func TestNotificationListPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	confessee := env.seedUser(t, "confessee")

	const total = 7
	for i := 0; i < total; i++ {
		sender := env.seedUser(t, fmt.Sprintf("sender%d", i))
		_, err := env.requests.Send(ctx, sender, confessee)
		require.NoError(t, err)
	}

	first, err := env.notifications.List(ctx, confessee, "", 5)
	require.NoError(t, err)
	assert.Len(t, first.Edges, 5)
	assert.Equal(t, int64(total), first.TotalCount)
	assert.True(t, first.PageInfo.HasNextPage)
	require.NotNil(t, first.PageInfo.EndCursor)

	second, err := env.notifications.List(ctx, confessee, *first.PageInfo.EndCursor, 5)
	require.NoError(t, err)
	assert.Len(t, second.Edges, 2)
	assert.False(t, second.PageInfo.HasNextPage)

	// Newest first across the whole listing.
	var prev primitive.ObjectID
	for i, notif := range append(first.Edges, second.Edges...) {
		if i > 0 {
			assert.True(t, notif.ID.Hex() < prev.Hex(), "listing must stay descending")
		}
		prev = notif.ID
	}
}
