// Package repository defines the story store contract implemented by the sqldb, mongodb and firestore backends.
package repository

import (
	"context"
	"errors"

	"englishbuddy/internal/story/model"
)

// ErrNotFound is returned when no story matches the id or fingerprint.
// Malformed ids are reported the same way.
var ErrNotFound = errors.New("story not found")

//go:generate mockgen -source=repository.go -destination=../../../mocks/story_repository.go -package=mocks

// StoryRepository persists stories. Implementations enforce text_hash uniqueness on the store side.
type StoryRepository interface {
	// FindByFingerprint returns the story whose text_hash equals fp.
	FindByFingerprint(ctx context.Context, fp string) (*model.Story, error)
	// CreateIfAbsent writes s unless a story with s.TextHash already exists.
	// It returns the stored record (with id and timestamp assigned by the store)
	// and whether this call created it.
	CreateIfAbsent(ctx context.Context, s model.Story) (*model.Story, bool, error)
	// List returns every story, newest first.
	List(ctx context.Context) ([]model.Story, error)
	Get(ctx context.Context, id string) (*model.Story, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}
