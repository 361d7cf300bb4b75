package debate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/respond"
)

type fakeConversations struct {
	messages []models.Message
	failList bool
}

func (f *fakeConversations) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	if f.failList {
		return nil, errors.New("db down")
	}
	var out []models.Message
	for _, msg := range f.messages {
		if msg.Conversation == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeConversations) CreateMessage(_ context.Context, input models.MessageInput) (*models.Message, error) {
	msg := models.Message{
		ID:            surrealmodels.NewRecordID("message", fmt.Sprintf("m%d", len(f.messages))),
		Conversation:  input.Conversation,
		Content:       input.Content,
		AuthorKind:    input.AuthorKind,
		AuthorPersona: input.AuthorPersona,
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

type fakePersonas struct {
	personas map[string]*models.Persona
}

func (f *fakePersonas) GetPersona(_ context.Context, id string) (*models.Persona, error) {
	return f.personas[id], nil
}

type fakeAssembler struct {
	queries  []string
	personas []string
}

func (f *fakeAssembler) Assemble(_ context.Context, query string, personaID *string) (*models.RetrievedContext, error) {
	f.queries = append(f.queries, query)
	f.personas = append(f.personas, *personaID)
	return &models.RetrievedContext{Text: "Relevant Chunks:\nNone."}, nil
}

type fakeTurnGenerator struct {
	opponents []string
}

func (f *fakeTurnGenerator) DebateTurn(_ context.Context, persona *models.Persona, _ *models.RetrievedContext, topic, opponentStatement string) respond.Answer {
	f.opponents = append(f.opponents, opponentStatement)
	return respond.Answer{Content: fmt.Sprintf("%s on %q", persona.Name, topic)}
}

type engineFixture struct {
	engine        *Engine
	conversations *fakeConversations
	assembler     *fakeAssembler
	generator     *fakeTurnGenerator
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		conversations: &fakeConversations{},
		assembler:     &fakeAssembler{},
		generator:     &fakeTurnGenerator{},
	}
	personas := &fakePersonas{personas: map[string]*models.Persona{
		"einstein": {Name: "Albert Einstein"},
		"newton":   {Name: "Isaac Newton"},
	}}
	f.engine = NewEngine(f.conversations, personas, f.assembler, f.generator, slog.New(slog.DiscardHandler))
	return f
}

func testDebate() *models.Debate {
	return &models.Debate{
		Topic:        "Is light a wave?",
		Conversation: "c1",
		Participants: []models.DebateParticipant{
			{PersonaID: "newton", OrderIndex: 1},
			{PersonaID: "einstein", OrderIndex: 0},
		},
	}
}

func TestNextTurnRejectsWrongParticipantCount(t *testing.T) {
	f := newEngineFixture()

	for _, count := range []int{0, 1, 3} {
		deb := testDebate()
		deb.Participants = make([]models.DebateParticipant, count)
		_, err := f.engine.NextTurn(context.Background(), deb)
		assert.ErrorIs(t, err, ErrParticipantCount, "count %d", count)
	}
}

func TestNextTurnSeedSpeakerIsLowestOrderIndex(t *testing.T) {
	f := newEngineFixture()

	msg, err := f.engine.NextTurn(context.Background(), testDebate())

	require.NoError(t, err)
	require.NotNil(t, msg.AuthorPersona)
	assert.Equal(t, "einstein", *msg.AuthorPersona)
	assert.Equal(t, models.AuthorPersona, msg.AuthorKind)
	// The opening turn responds to the topic, not an opponent statement.
	assert.Equal(t, []string{"Is light a wave?"}, f.assembler.queries)
	assert.Equal(t, []string{""}, f.generator.opponents)
}

func TestNextTurnAlternatesSpeakers(t *testing.T) {
	f := newEngineFixture()
	deb := testDebate()

	var speakers []string
	for i := 0; i < 4; i++ {
		msg, err := f.engine.NextTurn(context.Background(), deb)
		require.NoError(t, err)
		speakers = append(speakers, *msg.AuthorPersona)
	}

	assert.Equal(t, []string{"einstein", "newton", "einstein", "newton"}, speakers)
}

func TestNextTurnRespondsToPreviousStatement(t *testing.T) {
	f := newEngineFixture()
	deb := testDebate()

	first, err := f.engine.NextTurn(context.Background(), deb)
	require.NoError(t, err)
	_, err = f.engine.NextTurn(context.Background(), deb)
	require.NoError(t, err)

	assert.Equal(t, first.Content, f.generator.opponents[1])
	assert.Equal(t, first.Content, f.assembler.queries[1])
}

func TestNextTurnScopesRetrievalToSpeaker(t *testing.T) {
	f := newEngineFixture()
	deb := testDebate()

	_, err := f.engine.NextTurn(context.Background(), deb)
	require.NoError(t, err)
	_, err = f.engine.NextTurn(context.Background(), deb)
	require.NoError(t, err)

	assert.Equal(t, []string{"einstein", "newton"}, f.assembler.personas)
}

func TestNextTurnIgnoresUserMessagesForSelection(t *testing.T) {
	f := newEngineFixture()
	deb := testDebate()
	f.conversations.messages = []models.Message{
		{Conversation: "c1", Content: "Let the debate begin!", AuthorKind: models.AuthorUser},
	}

	msg, err := f.engine.NextTurn(context.Background(), deb)

	require.NoError(t, err)
	assert.Equal(t, "einstein", *msg.AuthorPersona)
}

func TestNextTurnResumesFromPersistedMessages(t *testing.T) {
	f := newEngineFixture()
	deb := testDebate()

	_, err := f.engine.NextTurn(context.Background(), deb)
	require.NoError(t, err)

	// A fresh engine sees only the stored messages and continues correctly.
	resumed := newEngineFixture()
	resumed.conversations.messages = f.conversations.messages

	msg, err := resumed.engine.NextTurn(context.Background(), deb)
	require.NoError(t, err)
	assert.Equal(t, "newton", *msg.AuthorPersona)
}

func TestNextTurnUnknownPersona(t *testing.T) {
	f := newEngineFixture()
	deb := testDebate()
	deb.Participants[0].PersonaID = "ghost"
	deb.Participants[0].OrderIndex = -1

	_, err := f.engine.NextTurn(context.Background(), deb)

	assert.ErrorIs(t, err, ErrUnknownPersona)
}
