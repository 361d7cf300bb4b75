package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/respond"
	"github.com/sophia-labs/sophia/internal/service"
)

// ChatAPI is the chat service surface the handler needs.
type ChatAPI interface {
	SendMessage(ctx context.Context, input service.ChatInput) (*service.ChatResult, error)
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// ContextAPI previews retrieval without generation.
type ContextAPI interface {
	Assemble(ctx context.Context, query string, personaID *string) (*models.RetrievedContext, error)
}

// ChatHandler serves conversations and context preview.
type ChatHandler struct {
	chat      ChatAPI
	assembler ContextAPI
}

func NewChatHandler(chat ChatAPI, assembler ContextAPI) *ChatHandler {
	return &ChatHandler{chat: chat, assembler: assembler}
}

type chatRequest struct {
	ConversationID string  `json:"conversation_id"`
	PersonaID      *string `json:"persona_id"`
	Content        string  `json:"content"`
}

type chatResponse struct {
	ConversationID string           `json:"conversation_id"`
	UserMessage    messageResponse  `json:"user_message"`
	Reply          messageResponse  `json:"reply"`
	Sources        []respond.Source `json:"sources"`
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chat.SendMessage(r.Context(), service.ChatInput{
		ConversationID: req.ConversationID,
		PersonaID:      req.PersonaID,
		Content:        req.Content,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	success(w, http.StatusOK, chatResponse{
		ConversationID: result.ConversationID,
		UserMessage:    toMessageResponse(result.UserMessage),
		Reply:          toMessageResponse(result.Reply),
		Sources:        result.Sources,
	})
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.Messages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusOK, toMessageResponses(messages))
}

type contextPreviewRequest struct {
	Query     string  `json:"query"`
	PersonaID *string `json:"persona_id"`
}

// Preview runs retrieval alone, for inspecting what a question would be
// answered from.
func (h *ChatHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req contextPreviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	rc, err := h.assembler.Assemble(r.Context(), req.Query, req.PersonaID)
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusOK, rc)
}
