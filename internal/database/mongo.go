package database

import (
	"context"
	"log"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Handle owns the client for the lifetime of the process. Repositories borrow
// DB; only main closes it.
type Handle struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func Connect(ctx context.Context, uri, dbName string) (*Handle, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}

	log.Printf("[DB] [INFO] connected to database %q", dbName)
	return &Handle{Client: client, DB: client.Database(dbName)}, nil
}

// Ping reports whether the primary is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return h.Client.Ping(checkCtx, readpref.Primary())
}

func (h *Handle) Close(ctx context.Context) error {
	if err := h.Client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "mongo disconnect")
	}
	log.Println("[DB] [INFO] disconnected")
	return nil
}
