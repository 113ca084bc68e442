package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	notebookHandler "englishbuddy/internal/notebook"
	notebookService "englishbuddy/internal/notebook/service"
	storyHandler "englishbuddy/internal/story"
	"englishbuddy/internal/story/repository"
	storyService "englishbuddy/internal/story/service"
	tutorHandler "englishbuddy/internal/tutor"
	tutorService "englishbuddy/internal/tutor/service"
	"englishbuddy/middleware"
	"englishbuddy/pkg/render"
	"englishbuddy/socket"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

// Deps are the collaborators built once at start-up. Hub may be nil when the feed is disabled.
type Deps struct {
	Stories  *storyService.StoryService
	Tutor    *tutorService.TutorService
	Notebook *notebookService.NotebookService
	Hub      *socket.Hub
	// Ready reports whether the store is reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	Logger         *zap.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func Setup(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(d.Logger),
		middleware.Metrics(),
		middleware.CORSMiddleware(d.CORSOrigins),
	)

	// Ops
	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				render.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket
	if d.Hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
			socket.ServeWs(d.Hub, w, req)
		})
	}

	// REST API
	stories := storyHandler.NewStoryHandler(d.Stories)
	tutor := tutorHandler.NewTutorHandler(d.Tutor)
	notebook := notebookHandler.NewNotebookHandler(d.Notebook)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(d.RequestTimeout))

		api.Get("/get-topics", tutor.GetTopics)
		api.Post("/translate", tutor.Translate)
		api.Post("/generate", tutor.Generate)
		api.Post("/analyze-grammar", tutor.AnalyzeGrammar)

		api.Get("/stories", stories.GetStories)
		api.Post("/stories", stories.CreateStory)
		api.Get("/stories/{id}", stories.GetStory)
		api.Delete("/stories/{id}", stories.DeleteStory)

		api.Post("/send-notebook-email", notebook.SendNotebookEmail)
	})

	return r
}

// StoreReady probes the repository with a fingerprint lookup that is expected to miss.
func StoreReady(repo repository.StoryRepository) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := repo.FindByFingerprint(ctx, "readiness-probe")
		if err == nil || errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
}
