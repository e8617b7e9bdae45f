package main

import (
	"context"
	"log"
	"time"

	"comet-be/internal/config"
	"comet-be/internal/db"
	"comet-be/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// index bootstrap: every uniqueness guarantee the services rely on lives
// here, so a fresh database gets the constraints before the first request.
func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongo, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("mongodb connection failed: %v", err)
	}
	defer mongo.Close(context.Background())

	if err := createIndexes(ctx, mongo); err != nil {
		log.Fatalf("index creation failed: %v", err)
	}

	log.Println("indexes created")
}

func createIndexes(ctx context.Context, m *db.Mongo) error {
	unique := options.Index().SetUnique(true)

	specs := []struct {
		coll    string
		indexes []mongo.IndexModel
	}{
		{
			coll: db.CollCustomers,
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "clerkId", Value: 1}}, Options: unique},
			},
		},
		{
			coll: db.CollOrders,
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "orderCode", Value: 1}}, Options: unique},
				{Keys: bson.D{{Key: "customerClerkId", Value: 1}}},
			},
		},
		{
			coll: db.CollWebhookEvents,
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "eventId", Value: 1}}, Options: unique},
			},
		},
		{
			coll: db.CollReconciliation,
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "orderCode", Value: 1}}},
				{Keys: bson.D{{Key: "fingerprint", Value: 1}}},
			},
		},
	}

	for _, spec := range specs {
		coll := m.Database.Collection(spec.coll)
		if _, err := coll.Indexes().CreateMany(ctx, spec.indexes); err != nil {
			return err
		}
		log.Printf("indexes ensured on %s", spec.coll)
	}

	return nil
}
