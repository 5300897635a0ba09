package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is immutable once created and deleted only by the chat
// cascade. IsEndRequest marks the system messages posted by the
// end-negotiation protocol. ExpiresAt mirrors the remaining TTL of the
// chat at send time.
type Message struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID       primitive.ObjectID `bson:"chat_id" json:"chat_id"`
	SenderID     primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Body         string             `bson:"body" json:"body"`
	Anonymous    bool               `bson:"anonymous" json:"anonymous"`
	IsEndRequest bool               `bson:"is_end_request" json:"is_end_request"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt    time.Time          `bson:"expires_at" json:"expires_at"`
}
