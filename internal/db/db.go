package db

import (
	"context"
	"time"

	"comet-be/internal/config"
	"comet-be/internal/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names used across repositories.
const (
	CollCustomers      = "customers"
	CollOrders         = "orders"
	CollProducts       = "products"
	CollCollections    = "collections"
	CollWebhookEvents  = "webhook_events"
	CollReconciliation = "payment_reconciliation"
)

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func Connect(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	logger.L().Info("mongodb connection established", zap.String("database", cfg.MongoDB))

	return &Mongo{
		Client:   client,
		Database: client.Database(cfg.MongoDB),
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
