package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ConversationKind distinguishes single-persona chats from debates.
type ConversationKind string

const (
	ConversationSingle ConversationKind = "single"
	ConversationDebate ConversationKind = "debate"
)

// Conversation is an append-only container of messages.
type Conversation struct {
	ID      surrealmodels.RecordID `json:"id"`
	Kind    ConversationKind       `json:"kind"`
	Created time.Time              `json:"created,omitempty"`
}

// AuthorKind identifies who authored a message.
type AuthorKind string

const (
	AuthorUser    AuthorKind = "user"
	AuthorPersona AuthorKind = "persona"
)

// Message is a single conversation turn, ordered by creation time.
type Message struct {
	ID            surrealmodels.RecordID `json:"id"`
	Conversation  string                 `json:"conversation"`
	Content       string                 `json:"content"`
	AuthorKind    AuthorKind             `json:"author_kind"`
	AuthorPersona *string                `json:"author_persona,omitempty"`
	Created       time.Time              `json:"created,omitempty"`
}

// MessageInput is the input structure for appending messages.
type MessageInput struct {
	Conversation  string     `json:"conversation"`
	Content       string     `json:"content"`
	AuthorKind    AuthorKind `json:"author_kind"`
	AuthorPersona *string    `json:"author_persona,omitempty"`
}

// DebateParticipant binds a persona to a debate with a fixed speaking order.
type DebateParticipant struct {
	PersonaID  string `json:"persona_id"`
	OrderIndex int    `json:"order_index"`
}

// Debate is a strict two-party alternating exchange over a topic.
// Participant count MUST equal 2; any other count is a validation error.
type Debate struct {
	ID           surrealmodels.RecordID `json:"id"`
	Topic        string                 `json:"topic"`
	Conversation string                 `json:"conversation"`
	Participants []DebateParticipant    `json:"participants"`
	Created      time.Time              `json:"created,omitempty"`
}
