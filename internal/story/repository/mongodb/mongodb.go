// Package mongodb stores stories in a MongoDB collection.
package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	storiesCollection = "stories"
	defaultDBName     = "englishbuddy"
)

// StoryRepository implements repository.StoryRepository on a MongoDB collection.
type StoryRepository struct {
	client  *mongo.Client
	db      *mongo.Database
	stories *mongo.Collection
}

// New connects, pings and makes sure the indexes exist.
func New(ctx context.Context, uri string) (*StoryRepository, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(uri))
	r := &StoryRepository{
		client:  cli,
		db:      db,
		stories: db.Collection(storiesCollection),
	}

	if err := r.ensureIndexes(ctx); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}

	return r, nil
}

func (r *StoryRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// ensureIndexes creates:
// - a unique index on text_hash, which backs CreateIfAbsent;
// - timestamp(desc) + _id(desc) for the newest-first listing.
func (r *StoryRepository) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "text_hash", Value: 1}},
			Options: options.Index().SetName("text_hash_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("timestamp_desc"),
		},
	}

	if _, err := r.stories.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

// databaseFromURI takes the database name from the URI path, falling back to the default.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}
