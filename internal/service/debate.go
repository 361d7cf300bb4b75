package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sophia-labs/sophia/internal/debate"
	"github.com/sophia-labs/sophia/internal/models"
)

var ErrDebateNotFound = errors.New("debate not found")

// debateStore is the persistence slice debates need.
type debateStore interface {
	CreateDebate(ctx context.Context, topic string, participants []models.DebateParticipant) (*models.Debate, error)
	GetDebate(ctx context.Context, id string) (*models.Debate, error)
	CreateMessage(ctx context.Context, input models.MessageInput) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	GetPersona(ctx context.Context, id string) (*models.Persona, error)
}

// turnEngine advances a debate by one turn.
type turnEngine interface {
	NextTurn(ctx context.Context, deb *models.Debate) (*models.Message, error)
}

// DebateService creates debates and drives their turns.
type DebateService struct {
	store  debateStore
	engine turnEngine
	logger *slog.Logger
}

func NewDebateService(store debateStore, engine turnEngine, logger *slog.Logger) *DebateService {
	return &DebateService{store: store, engine: engine, logger: logger}
}

// DebateInput describes a new debate. InitialMessage optionally seeds the
// conversation with a user framing message before any persona speaks.
type DebateInput struct {
	Topic          string
	Participants   []models.DebateParticipant
	InitialMessage string
}

// Create validates and persists a new debate. The two-participant rule is
// enforced here, at the boundary, so no invalid debate ever reaches storage.
func (s *DebateService) Create(ctx context.Context, input DebateInput) (*models.Debate, error) {
	if input.Topic == "" {
		return nil, fmt.Errorf("debate topic is required")
	}
	if len(input.Participants) != 2 {
		return nil, fmt.Errorf("%w: got %d", debate.ErrParticipantCount, len(input.Participants))
	}
	for _, participant := range input.Participants {
		persona, err := s.store.GetPersona(ctx, participant.PersonaID)
		if err != nil {
			return nil, fmt.Errorf("resolve participant: %w", err)
		}
		if persona == nil {
			return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, participant.PersonaID)
		}
	}

	deb, err := s.store.CreateDebate(ctx, input.Topic, input.Participants)
	if err != nil {
		return nil, fmt.Errorf("create debate: %w", err)
	}

	if input.InitialMessage != "" {
		_, err = s.store.CreateMessage(ctx, models.MessageInput{
			Conversation: deb.Conversation,
			Content:      input.InitialMessage,
			AuthorKind:   models.AuthorUser,
		})
		if err != nil {
			return nil, fmt.Errorf("seed debate message: %w", err)
		}
	}

	s.logger.Info("debate created", "topic", input.Topic)
	return deb, nil
}

// Get returns a debate by id.
func (s *DebateService) Get(ctx context.Context, id string) (*models.Debate, error) {
	deb, err := s.store.GetDebate(ctx, id)
	if err != nil {
		return nil, err
	}
	if deb == nil {
		return nil, fmt.Errorf("%w: %s", ErrDebateNotFound, id)
	}
	return deb, nil
}

// NextTurn advances the debate by one persona statement.
func (s *DebateService) NextTurn(ctx context.Context, debateID string) (*models.Message, error) {
	deb, err := s.Get(ctx, debateID)
	if err != nil {
		return nil, err
	}
	return s.engine.NextTurn(ctx, deb)
}

// Messages returns the debate transcript in speaking order.
func (s *DebateService) Messages(ctx context.Context, debateID string) ([]models.Message, error) {
	deb, err := s.Get(ctx, debateID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, deb.Conversation)
}
