package firestore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"englishbuddy/internal/story/model"
	"englishbuddy/internal/story/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmulatorRepo talks to a local Firestore emulator (gcloud emulators firestore start).
// Every test uses its own project id so runs never see each other's documents.
func newEmulatorRepo(t *testing.T) *StoryRepository {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := New(ctx, "englishbuddy-test-"+uuid.New().String()[:8], "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("a1B2c3"))
	assert.False(t, validID(""))
	assert.False(t, validID("stories/abc"))
}

func TestNewRequiresProject(t *testing.T) {
	_, err := New(context.Background(), "", "")
	require.Error(t, err)
}

func TestEmulatorCreateIfAbsent(t *testing.T) {
	repo := newEmulatorRepo(t)
	ctx := context.Background()
	text := "The fox crossed the river."

	first, created, err := repo.CreateIfAbsent(ctx, model.Story{Title: "Fox", Text: text, TextHash: model.Fingerprint(text)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, first.CreatedAt.IsZero())

	second, created, err := repo.CreateIfAbsent(ctx, model.Story{Title: "Fox 2", Text: text, TextHash: model.Fingerprint(text)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	found, err := repo.FindByFingerprint(ctx, model.Fingerprint(text))
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestEmulatorListGetDelete(t *testing.T) {
	repo := newEmulatorRepo(t)
	ctx := context.Background()

	a, _, err := repo.CreateIfAbsent(ctx, model.Story{Title: "A", Text: "aaa", TextHash: model.Fingerprint("aaa")})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	b, _, err := repo.CreateIfAbsent(ctx, model.Story{Title: "B", Text: "bbb", TextHash: model.Fingerprint("bbb")})
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Equal(t, a.ID, all[1].ID)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.Get(ctx, a.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, a.ID), repository.ErrNotFound))

	// Deleting the story releases its fingerprint.
	_, created, err := repo.CreateIfAbsent(ctx, model.Story{Title: "A again", Text: "aaa", TextHash: model.Fingerprint("aaa")})
	require.NoError(t, err)
	assert.True(t, created)
}
