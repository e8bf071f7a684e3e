package mongo

import (
	"context"
	"go-order-api/src/config"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	clientInstance *mongo.Client
	clientOnce     sync.Once
)

func GetMongoClient(cfg *config.Config) (*mongo.Client, error) {
	var err error
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, e := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBConnectionString))
		if e != nil {
			err = e
			return
		}
		clientInstance = client
	})
	return clientInstance, err
}

// EnsureIndexes creates the unique indexes the services rely on. The unique
// index on products.name backs the lookup-or-create retry path; without it
// two concurrent orders could create the same product twice.
func EnsureIndexes(ctx context.Context, cfg *config.Config, client *mongo.Client) error {
	db := client.Database(cfg.MongoDBDatabaseName)

	indexes := map[string]mongo.IndexModel{
		"orders": {
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		"products": {
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		"users": {
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	for collection, model := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
			return err
		}
	}
	return nil
}
