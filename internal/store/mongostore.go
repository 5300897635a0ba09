package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, db: db}
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

// WithTransaction runs fn inside a MongoDB transaction. Requires the
// deployment to be a replica set.
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc interface{}) (primitive.ObjectID, error) {
	result, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter bson.M, out interface{}) error {
	err := c.coll.FindOne(ctx, filter).Decode(out)
	if err == mongo.ErrNoDocuments {
		return ErrNoDocuments
	}
	return err
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.M, opts FindOptions, out interface{}) error {
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, field := range opts.Sort {
			order := 1
			if field.Desc {
				order = -1
			}
			sort = append(sort, bson.E{Key: field.Key, Value: order})
		}
		findOpts.SetSort(sort)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, out)
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter, update bson.M) (int64, error) {
	result, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (c *mongoCollection) UpdateMany(ctx context.Context, filter, update bson.M) (int64, error) {
	result, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	result, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	result, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (c *mongoCollection) Count(ctx context.Context, filter bson.M) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}
