// Package store abstracts the durable record store behind a small CRUD
// collection interface. The Mongo implementation backs the server; the
// in-memory implementation backs tests. Both honor the same filter
// subset (equality, $lt, $gt, $ne, $in, $or, $regex, $exists) and
// update operators ($set, $unset, $inc).
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoDocuments is returned by FindOne when nothing matches.
var ErrNoDocuments = errors.New("store: no documents in result")

// Collection names used across the system.
const (
	CollectionUsers         = "users"
	CollectionRequests      = "requests"
	CollectionChats         = "chats"
	CollectionMessages      = "messages"
	CollectionNotifications = "notifications"
)

// SortField orders results by one key.
type SortField struct {
	Key  string
	Desc bool
}

// FindOptions narrows a Find.
type FindOptions struct {
	Sort  []SortField
	Limit int64
}

// Collection is one record collection. out parameters take a pointer
// to a struct (FindOne) or to a slice (Find).
type Collection interface {
	InsertOne(ctx context.Context, doc interface{}) (primitive.ObjectID, error)
	FindOne(ctx context.Context, filter bson.M, out interface{}) error
	Find(ctx context.Context, filter bson.M, opts FindOptions, out interface{}) error
	UpdateOne(ctx context.Context, filter, update bson.M) (matched int64, err error)
	UpdateMany(ctx context.Context, filter, update bson.M) (matched int64, err error)
	DeleteOne(ctx context.Context, filter bson.M) (deleted int64, err error)
	DeleteMany(ctx context.Context, filter bson.M) (deleted int64, err error)
	Count(ctx context.Context, filter bson.M) (int64, error)
}

// Store hands out collections and runs multi-record transitions
// atomically. The callback either commits as a whole or leaves no
// trace.
type Store interface {
	Collection(name string) Collection
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
