package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConfessionRequest is a pending invitation from an anonymous sender
// to a receiver. It is deleted on rejection and on acceptance; at most
// one may be pending per ordered (anonymous, receiver) pair.
type ConfessionRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AnonymousID primitive.ObjectID `bson:"anonymous_id" json:"anonymous_id"`
	ReceiverID  primitive.ObjectID `bson:"receiver_id" json:"receiver_id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
