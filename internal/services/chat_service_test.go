package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"confessly/internal/apperrors"
	"confessly/internal/models"
	"confessly/internal/pubsub"
	"confessly/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAcceptRequestStartsChat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")

	request, err := env.requests.Send(ctx, anon, confessee)
	require.NoError(t, err)

	chat, err := env.chats.AcceptRequest(ctx, request.ID, confessee)
	require.NoError(t, err)

	assert.Equal(t, models.ChatStatusActive, chat.Status)
	assert.Equal(t, anon, chat.AnonymousID)
	assert.Equal(t, confessee, chat.ConfesseeID)
	assert.Equal(t, chat.CreatedAt.Add(testChatTTL), chat.ExpiresAt)

	// The request is consumed and both pointers now reference the chat.
	pending, err := env.requests.HasPending(ctx, anon, confessee)
	require.NoError(t, err)
	assert.False(t, pending)

	for _, id := range []primitive.ObjectID{anon, confessee} {
		user, err := env.users.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, user.ActiveChat)
		assert.Equal(t, chat.ID, *user.ActiveChat)
	}
}

func TestAcceptRequestOnlyReceiver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")

	request, err := env.requests.Send(ctx, anon, confessee)
	require.NoError(t, err)

	_, err = env.chats.AcceptRequest(ctx, request.ID, anon)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestAcceptRequestBusyParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	other := env.seedUser(t, "other")

	env.startChat(t, anon, confessee)

	request, err := env.requests.Send(ctx, other, confessee)
	require.NoError(t, err)

	_, err = env.chats.AcceptRequest(ctx, request.ID, confessee)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestConcurrentAcceptHasSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")

	request, err := env.requests.Send(ctx, anon, confessee)
	require.NoError(t, err)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.chats.AcceptRequest(ctx, request.ID, confessee)
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "loser error: %v", err)
		losses++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
}

func TestConcurrentEndRequestsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	const callers = 8
	results := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			requester := anon
			if i%2 == 1 {
				requester = confessee
			}
			_, results[i] = env.chats.RequestEnd(ctx, chat.ID, requester)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict), "loser error: %v", err)
	}
	assert.Equal(t, 1, wins)

	loaded, err := env.chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.True(t, loaded.EndNegotiation.Requesting)

	systemMessages, err := env.st.Collection(store.CollectionMessages).Count(ctx, bson.M{
		"chat_id":        chat.ID,
		"is_end_request": true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), systemMessages, "one negotiation must post one system message")
}

func TestConcurrentRejectsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.RequestEnd(ctx, chat.ID, anon)
	require.NoError(t, err)

	const callers = 8
	results := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.chats.RejectEnd(ctx, chat.ID, confessee)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict), "loser error: %v", err)
	}
	assert.Equal(t, 1, wins)

	loaded, err := env.chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.False(t, loaded.EndNegotiation.Requesting)
	assert.Equal(t, 1, loaded.EndNegotiation.Attempts, "one rejection must count one attempt")

	// The request message plus exactly one rejection message.
	systemMessages, err := env.st.Collection(store.CollectionMessages).Count(ctx, bson.M{
		"chat_id":        chat.ID,
		"is_end_request": true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), systemMessages)
}

func TestConcurrentAnswersSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.RequestEnd(ctx, chat.ID, anon)
	require.NoError(t, err)

	results := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, results[0] = env.chats.AcceptEnd(ctx, chat.ID, confessee)
	}()
	go func() {
		defer wg.Done()
		_, results[1] = env.chats.RejectEnd(ctx, chat.ID, confessee)
	}()
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict), "loser error: %v", err)
	}
	assert.Equal(t, 1, wins)

	// Whichever answer won, the negotiation is resolved exactly once.
	loaded, err := env.chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.False(t, loaded.EndNegotiation.Requesting)
	if results[0] == nil {
		assert.Equal(t, models.ChatStatusEnded, loaded.Status)
		assert.Equal(t, 0, loaded.EndNegotiation.Attempts)
	} else {
		assert.Equal(t, models.ChatStatusActive, loaded.Status)
		assert.Equal(t, 1, loaded.EndNegotiation.Attempts)
	}
}

func TestSendMessageFlipsSeenFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	message, err := env.chats.SendMessage(ctx, chat.ID, anon, "hello")
	require.NoError(t, err)
	assert.True(t, message.Anonymous)
	assert.Equal(t, chat.ExpiresAt, message.ExpiresAt)

	loaded, err := env.chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.True(t, loaded.AnonSeen)
	assert.False(t, loaded.ConfesseeSeen)

	_, err = env.chats.SendMessage(ctx, chat.ID, confessee, "hi back")
	require.NoError(t, err)

	loaded, err = env.chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.False(t, loaded.AnonSeen)
	assert.True(t, loaded.ConfesseeSeen)
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	outsider := env.seedUser(t, "outsider")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.SendMessage(ctx, chat.ID, anon, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = env.chats.SendMessage(ctx, chat.ID, outsider, "let me in")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	// The length cap counts characters, not bytes.
	_, err = env.chats.SendMessage(ctx, chat.ID, anon, strings.Repeat("é", maxMessageLength))
	assert.NoError(t, err)
	_, err = env.chats.SendMessage(ctx, chat.ID, anon, strings.Repeat("é", maxMessageLength+1))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestSendMessagePublishesToChatTopic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	sub := env.broker.Subscribe(pubsub.ChatMessagesTopic(chat.ID))
	defer sub.Close()

	sent, err := env.chats.SendMessage(ctx, chat.ID, anon, "hello")
	require.NoError(t, err)

	ev := recvEvent(t, sub)
	assert.Equal(t, pubsub.EventMessageCreated, ev.Type)
	payload, ok := ev.Payload.(models.Message)
	require.True(t, ok)
	assert.Equal(t, sent.ID, payload.ID)
}

func TestMarkSeen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.SendMessage(ctx, chat.ID, anon, "hello")
	require.NoError(t, err)

	updated, err := env.chats.MarkSeen(ctx, chat.ID, confessee)
	require.NoError(t, err)
	assert.True(t, updated.ConfesseeSeen)
	assert.True(t, updated.AnonSeen)
}

func TestEndNegotiationRejectCountsAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	opened, err := env.chats.RequestEnd(ctx, chat.ID, anon)
	require.NoError(t, err)
	assert.True(t, opened.EndNegotiation.Requesting)
	require.NotNil(t, opened.EndNegotiation.RequesterID)
	assert.Equal(t, anon, *opened.EndNegotiation.RequesterID)

	// Only one negotiation at a time.
	_, err = env.chats.RequestEnd(ctx, chat.ID, confessee)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	rejected, err := env.chats.RejectEnd(ctx, chat.ID, confessee)
	require.NoError(t, err)
	assert.False(t, rejected.EndNegotiation.Requesting)
	assert.Nil(t, rejected.EndNegotiation.RequesterID)
	assert.Equal(t, 1, rejected.EndNegotiation.Attempts)

	// The chat is live again and a second round stacks the counter.
	_, err = env.chats.RequestEnd(ctx, chat.ID, confessee)
	require.NoError(t, err)
	rejected, err = env.chats.RejectEnd(ctx, chat.ID, anon)
	require.NoError(t, err)
	assert.Equal(t, 2, rejected.EndNegotiation.Attempts)
}

func TestEndNegotiationRequesterCannotAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.RequestEnd(ctx, chat.ID, anon)
	require.NoError(t, err)

	_, err = env.chats.AcceptEnd(ctx, chat.ID, anon)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	_, err = env.chats.RejectEnd(ctx, chat.ID, anon)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestEndNegotiationPostsSystemMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.RequestEnd(ctx, chat.ID, anon)
	require.NoError(t, err)
	_, err = env.chats.RejectEnd(ctx, chat.ID, confessee)
	require.NoError(t, err)

	page, err := env.chats.Messages(ctx, chat.ID, anon, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Edges, 2)
	for _, message := range page.Edges {
		assert.True(t, message.IsEndRequest)
	}
	// Newest first: the rejection precedes the request.
	assert.Equal(t, confessee, page.Edges[0].SenderID)
	assert.Equal(t, anon, page.Edges[1].SenderID)
}

func TestAcceptEndMarksChatEnded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.RequestEnd(ctx, chat.ID, anon)
	require.NoError(t, err)

	ended, err := env.chats.AcceptEnd(ctx, chat.ID, confessee)
	require.NoError(t, err)
	assert.Equal(t, models.ChatStatusEnded, ended.Status)
	assert.False(t, ended.EndNegotiation.Requesting)

	// No further messages or negotiations on an ended chat.
	_, err = env.chats.SendMessage(ctx, chat.ID, anon, "one more thing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	_, err = env.chats.RequestEnd(ctx, chat.ID, anon)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestEndChatCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.SendMessage(ctx, chat.ID, anon, "hello")
	require.NoError(t, err)
	_, err = env.chats.SendMessage(ctx, chat.ID, confessee, "hi")
	require.NoError(t, err)

	require.NoError(t, env.chats.End(ctx, chat.ID, anon))

	_, err = env.chats.GetByID(ctx, chat.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	remaining, err := env.st.Collection(store.CollectionMessages).Count(ctx, bson.M{"chat_id": chat.ID})
	require.NoError(t, err)
	assert.Zero(t, remaining)

	for _, id := range []primitive.ObjectID{anon, confessee} {
		user, err := env.users.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, user.ActiveChat)
	}
}

func TestEndChatOutsiderForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	outsider := env.seedUser(t, "outsider")
	chat := env.startChat(t, anon, confessee)

	err := env.chats.End(ctx, chat.ID, outsider)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestExpiredChatTornDownOnRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.SendMessage(ctx, chat.ID, anon, "hello")
	require.NoError(t, err)

	env.chats.now = func() time.Time { return time.Now().Add(testChatTTL + time.Hour) }

	_, err = env.chats.GetByID(ctx, chat.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	user, err := env.users.FindByID(ctx, anon)
	require.NoError(t, err)
	assert.Nil(t, user.ActiveChat)

	remaining, err := env.st.Collection(store.CollectionMessages).Count(ctx, bson.M{"chat_id": chat.ID})
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestSweepExpiredRemovesOnlyExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expiredChat := env.startChat(t, env.seedUser(t, "a1"), env.seedUser(t, "b1"))
	liveChat := env.startChat(t, env.seedUser(t, "a2"), env.seedUser(t, "b2"))

	_, err := env.st.Collection(store.CollectionChats).UpdateOne(ctx,
		bson.M{"_id": expiredChat.ID},
		bson.M{"$set": bson.M{"expires_at": time.Now().Add(-time.Hour)}})
	require.NoError(t, err)

	swept, err := env.chats.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = env.chats.GetByID(ctx, expiredChat.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	_, err = env.chats.GetByID(ctx, liveChat.ID)
	assert.NoError(t, err)
}

func TestActiveChatForUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	loner := env.seedUser(t, "loner")
	chat := env.startChat(t, anon, confessee)

	for _, id := range []primitive.ObjectID{anon, confessee} {
		found, err := env.chats.ActiveChatForUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, chat.ID, found.ID)
	}

	_, err := env.chats.ActiveChatForUser(ctx, loner)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestMessagesPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	const total = 12
	for i := 0; i < total; i++ {
		sender := anon
		if i%2 == 1 {
			sender = confessee
		}
		_, err := env.chats.SendMessage(ctx, chat.ID, sender, "message")
		require.NoError(t, err)
	}

	seen := make(map[primitive.ObjectID]bool)
	after := ""
	sizes := []int{5, 5, 2}
	for i, want := range sizes {
		page, err := env.chats.Messages(ctx, chat.ID, anon, after, 5)
		require.NoError(t, err)
		assert.Len(t, page.Edges, want)
		assert.Equal(t, int64(total), page.TotalCount)
		assert.Equal(t, i < len(sizes)-1, page.PageInfo.HasNextPage)

		for _, message := range page.Edges {
			assert.False(t, seen[message.ID], "message served twice")
			seen[message.ID] = true
		}
		if page.PageInfo.EndCursor != nil {
			after = *page.PageInfo.EndCursor
		}
	}
	assert.Len(t, seen, total)
}

func TestMessagesMalformedCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.Messages(ctx, chat.ID, anon, "not-a-cursor", 5)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMalformedCursor))
}

func TestMessagesOutsiderForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	outsider := env.seedUser(t, "outsider")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.Messages(ctx, chat.ID, outsider, "", 5)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestLatestMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")
	chat := env.startChat(t, anon, confessee)

	_, err := env.chats.LatestMessage(ctx, chat.ID, anon)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = env.chats.SendMessage(ctx, chat.ID, anon, "first")
	require.NoError(t, err)
	last, err := env.chats.SendMessage(ctx, chat.ID, confessee, "second")
	require.NoError(t, err)

	latest, err := env.chats.LatestMessage(ctx, chat.ID, anon)
	require.NoError(t, err)
	assert.Equal(t, last.ID, latest.ID)
	assert.Equal(t, "second", latest.Body)
}

func TestTransactionRollbackOnAcceptFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")

	request, err := env.requests.Send(ctx, anon, confessee)
	require.NoError(t, err)

	// Deleting the sender mid-flight trips the participant check
	// inside the transaction; nothing may leak out of it.
	_, err = env.st.Collection(store.CollectionUsers).DeleteOne(ctx, bson.M{"_id": anon})
	require.NoError(t, err)

	_, err = env.chats.AcceptRequest(ctx, request.ID, confessee)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	count, err := env.st.Collection(store.CollectionChats).Count(ctx, bson.M{})
	require.NoError(t, err)
	assert.Zero(t, count)

	pending, err := env.requests.HasPending(ctx, anon, confessee)
	require.NoError(t, err)
	assert.True(t, pending, "request must survive a failed accept")

	user, err := env.users.FindByID(ctx, confessee)
	require.NoError(t, err)
	assert.Nil(t, user.ActiveChat)
}

func TestChatEventsReachBothParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anon := env.seedUser(t, "anon")
	confessee := env.seedUser(t, "confessee")

	subAnon := env.broker.Subscribe(pubsub.UserChatTopic(anon))
	defer subAnon.Close()
	subConfessee := env.broker.Subscribe(pubsub.UserChatTopic(confessee))
	defer subConfessee.Close()

	request, err := env.requests.Send(ctx, anon, confessee)
	require.NoError(t, err)
	chat, err := env.chats.AcceptRequest(ctx, request.ID, confessee)
	require.NoError(t, err)

	for _, sub := range []*pubsub.Subscription{subAnon, subConfessee} {
		ev := recvEvent(t, sub)
		assert.Equal(t, pubsub.EventChatStarted, ev.Type)
	}

	require.NoError(t, env.chats.End(ctx, chat.ID, anon))
	for _, sub := range []*pubsub.Subscription{subAnon, subConfessee} {
		ev := recvEvent(t, sub)
		assert.Equal(t, pubsub.EventChatEnded, ev.Type)
	}
}

func TestGetByIDUnknownChat(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.chats.GetByID(context.Background(), primitive.NewObjectID())
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*apperrors.Error)))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
