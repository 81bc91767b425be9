package cmd

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soliform/notifeed/internal/core/config"
	"github.com/soliform/notifeed/internal/store"
	mongostore "github.com/soliform/notifeed/internal/store/mongo"
)

const eventCollection = "events"

func openMongoStore(cfg *config.FeedConfig) (store.EventStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s, err := mongostore.New(client, cfg.MongoDatabase, eventCollection)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, nil, err
	}
	cleanup := func() { client.Disconnect(context.Background()) }
	return s, cleanup, nil
}
