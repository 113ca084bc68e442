package handler

import (
	"net/http"

	"englishbuddy/internal/tutor/model"
	"englishbuddy/internal/tutor/service"
	"englishbuddy/pkg/apperror"
	"englishbuddy/pkg/render"
)

type TutorHandler struct {
	Service *service.TutorService
}

func NewTutorHandler(service *service.TutorService) *TutorHandler {
	return &TutorHandler{Service: service}
}

func (h *TutorHandler) GetTopics(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, h.Service.SuggestTopics())
}

func (h *TutorHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req model.TranslateRequest
	if err := render.Decode(w, r, &req); err != nil {
		apperror.Write(w, r, err)
		return
	}

	translation, err := h.Service.Translate(r.Context(), req.Text)
	if err != nil {
		apperror.Write(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, model.TranslateResponse{Translation: translation})
}

// Generate wraps the completion in a one element list, the shape the web client reads.
func (h *TutorHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := render.Decode(w, r, &req); err != nil {
		apperror.Write(w, r, err)
		return
	}

	text, err := h.Service.Generate(r.Context(), req.Prompt)
	if err != nil {
		apperror.Write(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, []model.GeneratedText{{GeneratedText: text}})
}

func (h *TutorHandler) AnalyzeGrammar(w http.ResponseWriter, r *http.Request) {
	var req model.GrammarRequest
	if err := render.Decode(w, r, &req); err != nil {
		apperror.Write(w, r, err)
		return
	}

	points, err := h.Service.AnalyzeGrammar(r.Context(), req.Text)
	if err != nil {
		apperror.Write(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, points)
}
