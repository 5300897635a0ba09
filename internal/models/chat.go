package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat statuses. "ended" marks mutual agreement to end; the record
// survives until the unilateral teardown or the expiry sweep removes
// it.
const (
	ChatStatusActive = "active"
	ChatStatusEnded  = "ended"
)

// Chat is a time-boxed conversation between the anonymous sender and
// the confessee. ExpiresAt is fixed at creation and never extended.
type Chat struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AnonymousID    primitive.ObjectID `bson:"anonymous_id" json:"anonymous_id"`
	ConfesseeID    primitive.ObjectID `bson:"confessee_id" json:"confessee_id"`
	Status         string             `bson:"status" json:"status"`
	AnonSeen       bool               `bson:"anon_seen" json:"anon_seen"`
	ConfesseeSeen  bool               `bson:"confessee_seen" json:"confessee_seen"`
	EndNegotiation EndNegotiation     `bson:"end_negotiation" json:"end_negotiation"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt      time.Time          `bson:"expires_at" json:"expires_at"`
}

// EndNegotiation tracks the mutual-agreement protocol for ending a
// chat before its TTL. Only one request may be outstanding at a time.
type EndNegotiation struct {
	Requesting  bool                `bson:"requesting" json:"requesting"`
	RequesterID *primitive.ObjectID `bson:"requester_id,omitempty" json:"requester_id,omitempty"`
	Attempts    int                 `bson:"attempts" json:"attempts"`
}

// IsParticipant reports whether a user belongs to the chat.
func (c *Chat) IsParticipant(userID primitive.ObjectID) bool {
	return c.AnonymousID == userID || c.ConfesseeID == userID
}

// Expired reports whether the chat's TTL has passed.
func (c *Chat) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
