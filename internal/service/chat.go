// Package service orchestrates conversations, uploads, and debates on top
// of the storage, retrieval, and generation layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/respond"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrPersonaNotFound      = errors.New("persona not found")
	ErrEmptyMessage         = errors.New("message content is empty")
)

// chatStore is the persistence slice chat needs.
type chatStore interface {
	CreateConversation(ctx context.Context, kind models.ConversationKind) (*models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	CreateMessage(ctx context.Context, input models.MessageInput) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	GetPersona(ctx context.Context, id string) (*models.Persona, error)
}

// contextAssembler retrieves grounding context for a query.
type contextAssembler interface {
	Assemble(ctx context.Context, query string, personaID *string) (*models.RetrievedContext, error)
}

// answerGenerator produces the persona reply.
type answerGenerator interface {
	Chat(ctx context.Context, persona *models.Persona, rc *models.RetrievedContext, question string) respond.Answer
}

// ChatService runs single-persona conversations: persist the user turn,
// retrieve context, generate the reply, persist it.
type ChatService struct {
	store     chatStore
	assembler contextAssembler
	generator answerGenerator
	logger    *slog.Logger
}

func NewChatService(store chatStore, assembler contextAssembler, generator answerGenerator, logger *slog.Logger) *ChatService {
	return &ChatService{
		store:     store,
		assembler: assembler,
		generator: generator,
		logger:    logger,
	}
}

// ChatInput is one user turn. An empty ConversationID starts a new
// conversation; a nil PersonaID answers in a neutral voice over the whole
// corpus.
type ChatInput struct {
	ConversationID string
	PersonaID      *string
	Content        string
}

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	ConversationID string           `json:"conversation_id"`
	UserMessage    *models.Message  `json:"user_message"`
	Reply          *models.Message  `json:"reply"`
	Sources        []respond.Source `json:"sources"`
}

// SendMessage processes one user turn end to end. The user message is
// persisted before generation starts, so a generation failure never loses
// user input; the reply then carries the fallback text.
func (s *ChatService) SendMessage(ctx context.Context, input ChatInput) (*ChatResult, error) {
	if input.Content == "" {
		return nil, ErrEmptyMessage
	}

	conversationID, err := s.resolveConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	var persona *models.Persona
	if input.PersonaID != nil {
		persona, err = s.store.GetPersona(ctx, *input.PersonaID)
		if err != nil {
			return nil, fmt.Errorf("resolve persona: %w", err)
		}
		if persona == nil {
			return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, *input.PersonaID)
		}
	}

	userMessage, err := s.store.CreateMessage(ctx, models.MessageInput{
		Conversation: conversationID,
		Content:      input.Content,
		AuthorKind:   models.AuthorUser,
	})
	if err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	rc, err := s.assembler.Assemble(ctx, input.Content, input.PersonaID)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}

	answer := s.generator.Chat(ctx, persona, rc, input.Content)

	reply, err := s.store.CreateMessage(ctx, models.MessageInput{
		Conversation:  conversationID,
		Content:       answer.Content,
		AuthorKind:    models.AuthorPersona,
		AuthorPersona: input.PersonaID,
	})
	if err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	return &ChatResult{
		ConversationID: conversationID,
		UserMessage:    userMessage,
		Reply:          reply,
		Sources:        answer.Sources,
	}, nil
}

// Messages returns a conversation's history in creation order.
func (s *ChatService) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	conversation, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	return s.store.ListMessages(ctx, conversationID)
}

func (s *ChatService) resolveConversation(ctx context.Context, id string) (string, error) {
	if id == "" {
		conversation, err := s.store.CreateConversation(ctx, models.ConversationSingle)
		if err != nil {
			return "", fmt.Errorf("create conversation: %w", err)
		}
		return models.RecordIDString(conversation.ID)
	}

	conversation, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get conversation: %w", err)
	}
	if conversation == nil {
		return "", fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return id, nil
}
