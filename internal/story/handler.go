package handler

import (
	"net/http"

	"englishbuddy/internal/story/model"
	"englishbuddy/internal/story/service"
	"englishbuddy/pkg/apperror"
	"englishbuddy/pkg/render"

	"github.com/go-chi/chi/v5"
)

type StoryHandler struct {
	Service *service.StoryService
}

func NewStoryHandler(service *service.StoryService) *StoryHandler {
	return &StoryHandler{Service: service}
}

func (h *StoryHandler) GetStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.Service.List(r.Context())
	if err != nil {
		apperror.Write(w, r, err)
		return
	}
	if stories == nil {
		stories = []model.Story{}
	}
	render.JSON(w, http.StatusOK, stories)
}

// CreateStory answers 201 with the new story, or 200 with the stored one when the
// text is already known.
func (h *StoryHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req model.CreateStoryRequest
	if err := render.Decode(w, r, &req); err != nil {
		apperror.Write(w, r, err)
		return
	}

	story, created, err := h.Service.Ingest(r.Context(), req.Title, req.Text)
	if err != nil {
		apperror.Write(w, r, err)
		return
	}

	if !created {
		render.JSON(w, http.StatusOK, model.ExistingStoryResponse{Message: "Story already exists", Story: *story})
		return
	}
	render.JSON(w, http.StatusCreated, story)
}

func (h *StoryHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	story, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apperror.Write(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, story)
}

func (h *StoryHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		apperror.Write(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, model.MessageResponse{Message: "Story deleted successfully"})
}
