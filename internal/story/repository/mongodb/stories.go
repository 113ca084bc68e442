package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"englishbuddy/internal/story/model"
	"englishbuddy/internal/story/repository"
	"englishbuddy/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type storyDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Text      string             `bson:"text"`
	TextHash  string             `bson:"text_hash"`
	Timestamp time.Time          `bson:"timestamp"`
}

func (d storyDoc) toModel() *model.Story {
	return &model.Story{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Text:      d.Text,
		TextHash:  d.TextHash,
		CreatedAt: d.Timestamp.UTC(),
	}
}

func (r *StoryRepository) FindByFingerprint(ctx context.Context, fp string) (*model.Story, error) {
	const op = "storage/mongo/FindByFingerprint"

	var doc storyDoc
	if err := r.stories.FindOne(ctx, bson.D{{Key: "text_hash", Value: fp}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		logger.Sugar.Errorf("Failed to look up story by fingerprint %s: %v", fp, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

// CreateIfAbsent upserts on text_hash with an update pipeline that only fills
// fields that are still missing, so an existing story is left untouched.
// The timestamp comes from the server ($$NOW).
func (r *StoryRepository) CreateIfAbsent(ctx context.Context, s model.Story) (*model.Story, bool, error) {
	const op = "storage/mongo/CreateIfAbsent"

	keep := func(field string, value any) bson.D {
		return bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.D{{Key: "$literal", Value: value}}}}}
	}

	filter := bson.D{{Key: "text_hash", Value: s.TextHash}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "title", Value: keep("title", s.Title)},
			{Key: "text", Value: keep("text", s.Text)},
			{Key: "timestamp", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$timestamp", "$$NOW"}}}},
		}}},
	}

	created := false
	res, err := r.stories.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	switch {
	case err == nil:
		created = res.UpsertedCount == 1
	case mongo.IsDuplicateKeyError(err):
		// A concurrent upsert inserted the same fingerprint first.
	default:
		logger.Sugar.Errorf("Failed to upsert story %q: %v", s.Title, err)
		return nil, false, fmt.Errorf("%s: upsert: %w", op, err)
	}

	stored, err := r.FindByFingerprint(ctx, s.TextHash)
	if err != nil {
		return nil, false, fmt.Errorf("%s: read back: %w", op, err)
	}
	return stored, created, nil
}

func (r *StoryRepository) List(ctx context.Context) ([]model.Story, error) {
	const op = "storage/mongo/List"

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.stories.Find(ctx, bson.D{}, opts)
	if err != nil {
		logger.Sugar.Errorf("Failed to list stories: %v", err)
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []storyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	stories := make([]model.Story, 0, len(docs))
	for _, d := range docs {
		stories = append(stories, *d.toModel())
	}
	return stories, nil
}

func (r *StoryRepository) Get(ctx context.Context, id string) (*model.Story, error) {
	const op = "storage/mongo/Get"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	var doc storyDoc
	if err := r.stories.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		logger.Sugar.Errorf("Failed to get story %s: %v", id, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func (r *StoryRepository) Delete(ctx context.Context, id string) error {
	const op = "storage/mongo/Delete"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	res, err := r.stories.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		logger.Sugar.Errorf("Failed to delete story %s: %v", id, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}
