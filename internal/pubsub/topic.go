package pubsub

import "go.mongodb.org/mongo-driver/bson/primitive"

// TopicKind tags the families of topics the broker carries. Topics are
// always built through the constructors below so two entities can
// never collide on a hand-assembled name.
type TopicKind string

const (
	KindChatMessages  TopicKind = "chat.messages"
	KindUserChat      TopicKind = "user.chat"
	KindUserNotifSeen TopicKind = "user.notif-seen"
)

// Topic is a typed channel key: a kind plus the id of the entity the
// channel belongs to.
type Topic struct {
	Kind TopicKind
	ID   string
}

func (t Topic) String() string {
	return string(t.Kind) + ":" + t.ID
}

// ChatMessagesTopic carries new messages of one chat.
func ChatMessagesTopic(chatID primitive.ObjectID) Topic {
	return Topic{Kind: KindChatMessages, ID: chatID.Hex()}
}

// UserChatTopic carries chat lifecycle changes visible to one user.
func UserChatTopic(userID primitive.ObjectID) Topic {
	return Topic{Kind: KindUserChat, ID: userID.Hex()}
}

// UserNotifSeenTopic carries notification-seen toggles for one user.
func UserNotifSeenTopic(userID primitive.ObjectID) Topic {
	return Topic{Kind: KindUserNotifSeen, ID: userID.Hex()}
}
