// Package debate advances two-party persona debates one turn at a time.
package debate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/respond"
)

// ErrParticipantCount rejects debates that do not have exactly two
// participants.
var ErrParticipantCount = errors.New("a debate requires exactly two participants")

// ErrUnknownPersona means a participant references a persona that does not
// exist.
var ErrUnknownPersona = errors.New("debate participant persona not found")

// conversationStore is the message persistence the engine needs.
type conversationStore interface {
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	CreateMessage(ctx context.Context, input models.MessageInput) (*models.Message, error)
}

// personaStore resolves participant personas.
type personaStore interface {
	GetPersona(ctx context.Context, id string) (*models.Persona, error)
}

// contextAssembler retrieves grounding context for the speaking persona.
type contextAssembler interface {
	Assemble(ctx context.Context, query string, personaID *string) (*models.RetrievedContext, error)
}

// turnGenerator produces one debate statement.
type turnGenerator interface {
	DebateTurn(ctx context.Context, persona *models.Persona, rc *models.RetrievedContext, topic, opponentStatement string) respond.Answer
}

// Engine advances a debate by exactly one turn per call. It holds no debate
// state: whose turn it is derives entirely from the persisted messages, so a
// stopped debate resumes where it left off.
type Engine struct {
	conversations conversationStore
	personas      personaStore
	assembler     contextAssembler
	generator     turnGenerator
	logger        *slog.Logger
}

func NewEngine(
	conversations conversationStore,
	personas personaStore,
	assembler contextAssembler,
	generator turnGenerator,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		conversations: conversations,
		personas:      personas,
		assembler:     assembler,
		generator:     generator,
		logger:        logger,
	}
}

// NextTurn selects the next speaker, generates their statement, persists it,
// and returns the new message.
//
// Speaker selection: participants sorted by order index; the next speaker is
// participant[n % 2] where n is the number of persona-authored messages so
// far. The first turn responds to the topic alone; every later turn responds
// to the previous persona statement.
func (e *Engine) NextTurn(ctx context.Context, deb *models.Debate) (*models.Message, error) {
	if len(deb.Participants) != 2 {
		return nil, fmt.Errorf("%w: got %d", ErrParticipantCount, len(deb.Participants))
	}

	participants := make([]models.DebateParticipant, 2)
	copy(participants, deb.Participants)
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].OrderIndex < participants[j].OrderIndex
	})

	messages, err := e.conversations.ListMessages(ctx, deb.Conversation)
	if err != nil {
		return nil, fmt.Errorf("list debate messages: %w", err)
	}

	var personaMessages []models.Message
	for _, msg := range messages {
		if msg.AuthorKind == models.AuthorPersona {
			personaMessages = append(personaMessages, msg)
		}
	}

	speaker := participants[len(personaMessages)%2]
	persona, err := e.personas.GetPersona(ctx, speaker.PersonaID)
	if err != nil {
		return nil, fmt.Errorf("resolve speaker: %w", err)
	}
	if persona == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, speaker.PersonaID)
	}

	opponentStatement := ""
	if len(personaMessages) > 0 {
		opponentStatement = personaMessages[len(personaMessages)-1].Content
	}

	query := opponentStatement
	if query == "" {
		query = deb.Topic
	}

	rc, err := e.assembler.Assemble(ctx, query, &speaker.PersonaID)
	if err != nil {
		return nil, fmt.Errorf("assemble debate context: %w", err)
	}

	answer := e.generator.DebateTurn(ctx, persona, rc, deb.Topic, opponentStatement)

	message, err := e.conversations.CreateMessage(ctx, models.MessageInput{
		Conversation:  deb.Conversation,
		Content:       answer.Content,
		AuthorKind:    models.AuthorPersona,
		AuthorPersona: &speaker.PersonaID,
	})
	if err != nil {
		return nil, fmt.Errorf("persist debate turn: %w", err)
	}

	e.logger.Info("debate turn",
		"conversation", deb.Conversation,
		"speaker", persona.Name,
		"turn", len(personaMessages)+1)
	return message, nil
}
