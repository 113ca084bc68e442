package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"englishbuddy/internal/story/model"
	"englishbuddy/internal/story/repository"
	"englishbuddy/pkg/logger"

	firestoredriver "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type storyDoc struct {
	Title     string    `firestore:"title"`
	Text      string    `firestore:"text"`
	TextHash  string    `firestore:"text_hash"`
	Timestamp time.Time `firestore:"timestamp"`
}

type fingerprintDoc struct {
	StoryID string `firestore:"story_id"`
}

func toModel(snap *firestoredriver.DocumentSnapshot) (*model.Story, error) {
	var d storyDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return &model.Story{
		ID:        snap.Ref.ID,
		Title:     d.Title,
		Text:      d.Text,
		TextHash:  d.TextHash,
		CreatedAt: d.Timestamp.UTC(),
	}, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// validID rejects ids Firestore would read as a path.
func validID(id string) bool {
	return id != "" && !strings.Contains(id, "/")
}

func (r *StoryRepository) FindByFingerprint(ctx context.Context, fp string) (*model.Story, error) {
	const op = "storage/firestore/FindByFingerprint"

	docs, err := r.stories().Where("text_hash", "==", fp).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		logger.Sugar.Errorf("Failed to look up story by fingerprint %s: %v", fp, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	s, err := toModel(docs[0])
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return s, nil
}

// CreateIfAbsent writes the story and its fingerprint guard in one transaction.
// Stories stored before guards existed are still found through the text_hash query.
func (r *StoryRepository) CreateIfAbsent(ctx context.Context, s model.Story) (*model.Story, bool, error) {
	const op = "storage/firestore/CreateIfAbsent"

	guardRef := r.fingerprints().Doc(s.TextHash)
	var (
		storyRef *firestoredriver.DocumentRef
		created  bool
	)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestoredriver.Transaction) error {
		created = false

		guard, err := tx.Get(guardRef)
		switch {
		case err == nil:
			var g fingerprintDoc
			if err := guard.DataTo(&g); err != nil {
				return err
			}
			storyRef = r.stories().Doc(g.StoryID)
			return nil
		case !isNotFound(err):
			return err
		}

		existing, err := tx.Documents(r.stories().Where("text_hash", "==", s.TextHash).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			storyRef = existing[0].Ref
			return nil
		}

		storyRef = r.stories().NewDoc()
		if err := tx.Create(storyRef, map[string]any{
			"title":     s.Title,
			"text":      s.Text,
			"text_hash": s.TextHash,
			"timestamp": firestoredriver.ServerTimestamp,
		}); err != nil {
			return err
		}
		created = true
		return tx.Create(guardRef, fingerprintDoc{StoryID: storyRef.ID})
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create story %q: %v", s.Title, err)
		return nil, false, fmt.Errorf("%s: transaction: %w", op, err)
	}

	snap, err := storyRef.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, false, fmt.Errorf("%s: read back: %w", op, repository.ErrNotFound)
		}
		return nil, false, fmt.Errorf("%s: read back: %w", op, err)
	}

	stored, err := toModel(snap)
	if err != nil {
		return nil, false, fmt.Errorf("%s: decode: %w", op, err)
	}
	return stored, created, nil
}

func (r *StoryRepository) List(ctx context.Context) ([]model.Story, error) {
	const op = "storage/firestore/List"

	docs, err := r.stories().
		OrderBy("timestamp", firestoredriver.Desc).
		OrderBy(firestoredriver.DocumentID, firestoredriver.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		logger.Sugar.Errorf("Failed to list stories: %v", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stories := make([]model.Story, 0, len(docs))
	for _, doc := range docs {
		s, err := toModel(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", op, doc.Ref.ID, err)
		}
		stories = append(stories, *s)
	}
	return stories, nil
}

func (r *StoryRepository) Get(ctx context.Context, id string) (*model.Story, error) {
	const op = "storage/firestore/Get"

	if !validID(id) {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	snap, err := r.stories().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		logger.Sugar.Errorf("Failed to get story %s: %v", id, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s, err := toModel(snap)
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return s, nil
}

// Delete removes the story together with its fingerprint guard.
func (r *StoryRepository) Delete(ctx context.Context, id string) error {
	const op = "storage/firestore/Delete"

	if !validID(id) {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	ref := r.stories().Doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestoredriver.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var d storyDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}

		if err := tx.Delete(ref); err != nil {
			return err
		}
		if d.TextHash != "" {
			return tx.Delete(r.fingerprints().Doc(d.TextHash))
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		logger.Sugar.Errorf("Failed to delete story %s: %v", id, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
