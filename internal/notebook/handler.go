package handler

import (
	"net/http"

	"englishbuddy/internal/notebook/model"
	"englishbuddy/internal/notebook/service"
	"englishbuddy/pkg/apperror"
	"englishbuddy/pkg/render"
)

type NotebookHandler struct {
	Service *service.NotebookService
}

func NewNotebookHandler(service *service.NotebookService) *NotebookHandler {
	return &NotebookHandler{Service: service}
}

func (h *NotebookHandler) SendNotebookEmail(w http.ResponseWriter, r *http.Request) {
	var req model.SendNotebookRequest
	if err := render.Decode(w, r, &req); err != nil {
		apperror.Write(w, r, err)
		return
	}

	if err := h.Service.Send(r.Context(), req.RecipientEmail, req.NotebookWords); err != nil {
		apperror.Write(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, model.SendNotebookResponse{Message: "Email sent successfully"})
}
