package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/service"
)

// PersonaStore is the persona persistence the handler needs.
type PersonaStore interface {
	CreatePersona(ctx context.Context, input models.PersonaInput) (*models.Persona, error)
	GetPersona(ctx context.Context, id string) (*models.Persona, error)
	ListPersonas(ctx context.Context) ([]models.Persona, error)
}

// PersonaHandler serves persona CRUD.
type PersonaHandler struct {
	store PersonaStore
}

func NewPersonaHandler(store PersonaStore) *PersonaHandler {
	return &PersonaHandler{store: store}
}

type createPersonaRequest struct {
	Name     string `json:"name"`
	ShortBio string `json:"short_bio"`
}

func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPersonaRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "persona name is required")
		return
	}

	persona, err := h.store.CreatePersona(r.Context(), models.PersonaInput{
		Name:     req.Name,
		ShortBio: req.ShortBio,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusCreated, toPersonaResponse(persona))
}

func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	personas, err := h.store.ListPersonas(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	out := make([]personaResponse, len(personas))
	for i := range personas {
		out[i] = toPersonaResponse(&personas[i])
	}
	success(w, http.StatusOK, out)
}

func (h *PersonaHandler) Get(w http.ResponseWriter, r *http.Request) {
	persona, err := h.store.GetPersona(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	if persona == nil {
		handleError(w, service.ErrPersonaNotFound)
		return
	}
	success(w, http.StatusOK, toPersonaResponse(persona))
}
