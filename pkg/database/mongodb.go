package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"confessly/internal/config"
	"confessly/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	client   *mongo.Client
	database *mongo.Database
	once     sync.Once
)

// InitMongoDB establishes the MongoDB connection and bootstraps
// indexes.
func InitMongoDB(cfg config.MongoConfig) error {
	var err error
	once.Do(func() {
		err = connect(cfg)
	})
	return err
}

func connect(cfg config.MongoConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Minute).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	var err error
	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database = client.Database(cfg.Database)
	logger.Infof("Connected to MongoDB database: %s", cfg.Database)

	go func() {
		if err := createIndexes(); err != nil {
			logger.Warn("Failed to create indexes: ", err)
		}
	}()

	return nil
}

// GetDatabase returns the database instance.
func GetDatabase() *mongo.Database {
	if database == nil {
		logger.Fatal("Database not initialized. Call InitMongoDB first.")
	}
	return database
}

// GetClient returns the MongoDB client.
func GetClient() *mongo.Client {
	if client == nil {
		logger.Fatal("MongoDB client not initialized. Call InitMongoDB first.")
	}
	return client
}

// Disconnect closes the MongoDB connection.
func Disconnect() error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}

// HealthCheck reports connection status for the health endpoint.
func HealthCheck() map[string]interface{} {
	if database == nil {
		return map[string]interface{}{
			"status": "disconnected",
			"error":  "database not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	return map[string]interface{}{
		"status":   "connected",
		"database": database.Name(),
	}
}

func createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		indexes    []mongo.IndexModel
	}{
		{
			collection: "users",
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "name", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{{Key: "active_chat", Value: 1}},
				},
			},
		},
		{
			collection: "requests",
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "anonymous_id", Value: 1},
						{Key: "receiver_id", Value: 1},
					},
				},
				{
					Keys: bson.D{{Key: "receiver_id", Value: 1}},
				},
			},
		},
		{
			collection: "chats",
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "anonymous_id", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "confessee_id", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "expires_at", Value: 1}},
				},
			},
		},
		{
			collection: "messages",
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "chat_id", Value: 1}},
				},
			},
		},
		{
			collection: "notifications",
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "receiver_id", Value: 1}},
				},
			},
		},
	}

	for _, group := range indexes {
		coll := database.Collection(group.collection)
		if _, err := coll.Indexes().CreateMany(ctx, group.indexes); err != nil {
			logger.Warnf("Failed to create indexes for collection %s: %v", group.collection, err)
			continue
		}
	}

	return nil
}
