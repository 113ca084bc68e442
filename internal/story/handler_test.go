package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"englishbuddy/internal/story/model"
	"englishbuddy/internal/story/repository/sqldb"
	"englishbuddy/internal/story/service"
	"englishbuddy/pkg/apperror"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := sql.Open(sqldb.SQLite, sqldb.SQLiteDSN(filepath.Join(t.TempDir(), "stories.db")))
	require.NoError(t, err)
	repo, err := sqldb.New(context.Background(), db, sqldb.SQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })

	h := NewStoryHandler(service.NewStoryService(repo, nil))
	r := chi.NewRouter()
	r.Get("/api/stories", h.GetStories)
	r.Post("/api/stories", h.CreateStory)
	r.Get("/api/stories/{id}", h.GetStory)
	r.Delete("/api/stories/{id}", h.DeleteStory)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCreateStoryThenDuplicate(t *testing.T) {
	h := newTestRouter(t)
	body := `{"title":"The Lost Key","text":"Anna found a key under the bench."}`

	rec := do(t, h, http.MethodPost, "/api/stories", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.Story](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "The Lost Key", created.Title)
	assert.Equal(t, model.Fingerprint("Anna found a key under the bench."), created.TextHash)
	assert.False(t, created.CreatedAt.IsZero())

	rec = do(t, h, http.MethodPost, "/api/stories", `{"title":"Another title","text":"Anna found a key under the bench."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	existing := decode[model.ExistingStoryResponse](t, rec)
	assert.Equal(t, "Story already exists", existing.Message)
	assert.Equal(t, created.ID, existing.ID)
	assert.Equal(t, "The Lost Key", existing.Title)
}

func TestCreateStoryValidation(t *testing.T) {
	h := newTestRouter(t)

	for _, body := range []string{
		`{"title":"","text":"some text"}`,
		`{"title":"A title","text":"   "}`,
		`{}`,
		`{"title":`,
		``,
	} {
		rec := do(t, h, http.MethodPost, "/api/stories", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, apperror.CodeValidation, decode[apperror.Response](t, rec).Code)
	}

	rec := do(t, h, http.MethodGet, "/api/stories", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetStoriesNewestFirst(t *testing.T) {
	h := newTestRouter(t)

	for _, text := range []string{"first story", "second story", "third story"} {
		rec := do(t, h, http.MethodPost, "/api/stories", `{"title":"t","text":"`+text+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/stories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stories := decode[[]model.Story](t, rec)
	require.Len(t, stories, 3)
	assert.Equal(t, "third story", stories[0].Text)
	assert.Equal(t, "first story", stories[2].Text)
}

func TestGetAndDeleteStory(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/stories", `{"title":"t","text":"a short story"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[model.Story](t, rec).ID

	rec = do(t, h, http.MethodGet, "/api/stories/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a short story", decode[model.Story](t, rec).Text)

	rec = do(t, h, http.MethodDelete, "/api/stories/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Story deleted successfully"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/stories/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeNotFound, decode[apperror.Response](t, rec).Code)

	rec = do(t, h, http.MethodDelete, "/api/stories/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletedTextCanBeStoredAgain(t *testing.T) {
	h := newTestRouter(t)
	body := `{"title":"t","text":"recycled text"}`

	rec := do(t, h, http.MethodPost, "/api/stories", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[model.Story](t, rec).ID

	require.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/api/stories/"+id, "").Code)

	rec = do(t, h, http.MethodPost, "/api/stories", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEqual(t, id, decode[model.Story](t, rec).ID)
}
