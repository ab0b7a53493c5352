package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongorepo "github.com/bcllcc/MockMate/internal/repositories/mongo"
)

// MongoDatabase returns the application database (MONGO_DB, default "mockmate").
func MongoDatabase() *mongo.Database {
	return MongoClient.Database(getEnvOrDefault("MONGO_DB", "mockmate"))
}

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	audit := db.Collection(mongorepo.AuditCollection)
	_, err := audit.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// TTL index: expire at ExpiresAt (must be Date)
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		// request/response pairs share a request id
		{
			Keys:    bson.D{{Key: "request_id", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("by_request_ts"),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("by_ts"),
		},
	})
	return err
}
