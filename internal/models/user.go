package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an identity-managed profile. The lifecycle engine only
// mutates ActiveChat and NotifSeen; everything else belongs to the
// identity collaborator.
type User struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name             string              `bson:"name" json:"name"`
	Email            string              `bson:"email,omitempty" json:"email,omitempty"`
	Image            string              `bson:"image,omitempty" json:"image,omitempty"`
	Cover            string              `bson:"cover,omitempty" json:"cover,omitempty"`
	Bio              string              `bson:"bio,omitempty" json:"bio,omitempty"`
	Status           string              `bson:"status,omitempty" json:"status,omitempty"`
	ActiveChat       *primitive.ObjectID `bson:"active_chat,omitempty" json:"active_chat,omitempty"`
	NotifSeen        bool                `bson:"notif_seen" json:"notif_seen"`
	RequestsDisabled bool                `bson:"requests_disabled" json:"requests_disabled"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
}
