package service

import (
	"context"
	"errors"
	"strings"

	"englishbuddy/internal/story/model"
	"englishbuddy/internal/story/repository"
	"englishbuddy/pkg/apperror"
	"englishbuddy/pkg/logger"
	"englishbuddy/pkg/metrics"
	"englishbuddy/socket"
)

//go:generate mockgen -source=story.service.go -destination=../../../mocks/publisher.go -package=mocks

// Publisher receives story feed events. Implementations must not block.
type Publisher interface {
	Publish(eventType, storyID string, payload any)
}

type StoryService struct {
	Repo repository.StoryRepository
	Feed Publisher
}

// NewStoryService wires the service. feed may be nil when the story feed is disabled.
func NewStoryService(repo repository.StoryRepository, feed Publisher) *StoryService {
	return &StoryService{Repo: repo, Feed: feed}
}

// Ingest stores a story unless one with byte-identical text already exists.
// It returns the stored story and whether this call created it.
func (s *StoryService) Ingest(ctx context.Context, title, text string) (*model.Story, bool, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(text) == "" {
		metrics.StoryIngest.WithLabelValues("invalid").Inc()
		return nil, false, apperror.NewValidation("Title and text are required")
	}

	fp := model.Fingerprint(text)

	existing, err := s.Repo.FindByFingerprint(ctx, fp)
	switch {
	case err == nil:
		metrics.StoryIngest.WithLabelValues("duplicate").Inc()
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		metrics.StoryIngest.WithLabelValues("error").Inc()
		return nil, false, apperror.NewStorage("Failed to check for existing story", err)
	}

	stored, created, err := s.Repo.CreateIfAbsent(ctx, model.Story{Title: title, Text: text, TextHash: fp})
	if err != nil {
		metrics.StoryIngest.WithLabelValues("error").Inc()
		return nil, false, apperror.NewStorage("Failed to save story", err)
	}

	if !created {
		// Another request stored the same text between the lookup and the write.
		metrics.StoryIngest.WithLabelValues("duplicate").Inc()
		return stored, false, nil
	}

	metrics.StoryIngest.WithLabelValues("created").Inc()
	logger.Sugar.Infof("Stored story %s (%q)", stored.ID, stored.Title)
	s.publish(socket.StoryCreatedType, stored.ID, stored)
	return stored, true, nil
}

// List returns every story, newest first.
func (s *StoryService) List(ctx context.Context) ([]model.Story, error) {
	stories, err := s.Repo.List(ctx)
	if err != nil {
		return nil, apperror.NewStorage("Failed to load stories", err)
	}
	return stories, nil
}

func (s *StoryService) Get(ctx context.Context, id string) (*model.Story, error) {
	story, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, id, "Failed to load story")
	}
	return story, nil
}

func (s *StoryService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return storeError(err, id, "Failed to delete story")
	}

	logger.Sugar.Infof("Deleted story %s", id)
	s.publish(socket.StoryDeletedType, id, nil)
	return nil
}

func (s *StoryService) publish(eventType, id string, payload any) {
	if s.Feed == nil {
		return
	}
	s.Feed.Publish(eventType, id, payload)
}

func storeError(err error, id, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NewNotFound("Story", id)
	}
	return apperror.NewStorage(msg, err)
}
