package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification records that a confession request reached its receiver.
// Deleted explicitly by the receiver, otherwise left to accumulate.
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReceiverID primitive.ObjectID `bson:"receiver_id" json:"receiver_id"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
