package assistant

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/mlms/internal/advisory"
	"github.com/MrJamesThe3rd/mlms/internal/http/bind"
	"github.com/MrJamesThe3rd/mlms/internal/http/respond"
)

type Handler struct {
	svc *advisory.Service
}

func NewHandler(svc *advisory.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/chat", h.chat)
}

type messageRequest struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text"`
}

type chatRequest struct {
	History []messageRequest `json:"history" validate:"dive"`
	Message string           `json:"message" validate:"required"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := bind.JSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	history := make([]advisory.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, advisory.Message{Role: advisory.Role(m.Role), Text: m.Text})
	}

	respond.JSON(w, http.StatusOK, chatResponse{Reply: h.svc.Chat(r.Context(), history, req.Message)})
}
