package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/service"
)

// DebateAPI is the debate service surface the handler needs.
type DebateAPI interface {
	Create(ctx context.Context, input service.DebateInput) (*models.Debate, error)
	Get(ctx context.Context, id string) (*models.Debate, error)
	NextTurn(ctx context.Context, debateID string) (*models.Message, error)
	Messages(ctx context.Context, debateID string) ([]models.Message, error)
}

// DebateHandler serves debate creation and turn advancement.
type DebateHandler struct {
	debates DebateAPI
}

func NewDebateHandler(debates DebateAPI) *DebateHandler {
	return &DebateHandler{debates: debates}
}

type createDebateRequest struct {
	Topic          string                     `json:"topic"`
	Participants   []models.DebateParticipant `json:"participants"`
	InitialMessage string                     `json:"initial_message"`
}

func (h *DebateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDebateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deb, err := h.debates.Create(r.Context(), service.DebateInput{
		Topic:          req.Topic,
		Participants:   req.Participants,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusCreated, toDebateResponse(deb))
}

func (h *DebateHandler) Get(w http.ResponseWriter, r *http.Request) {
	deb, err := h.debates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusOK, toDebateResponse(deb))
}

// Turn generates the next persona statement. Each call advances the debate
// by exactly one turn; the client drives pacing.
func (h *DebateHandler) Turn(w http.ResponseWriter, r *http.Request) {
	message, err := h.debates.NextTurn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusOK, toMessageResponse(message))
}

func (h *DebateHandler) Messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.debates.Messages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusOK, toMessageResponses(messages))
}
