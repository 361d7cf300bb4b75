package server

import (
	"time"

	"github.com/sophia-labs/sophia/internal/models"
)

// API payloads carry plain string ids; record ids never leak to clients.

type personaResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	ShortBio string    `json:"short_bio"`
	Created  time.Time `json:"created,omitempty"`
}

func toPersonaResponse(p *models.Persona) personaResponse {
	id, _ := models.RecordIDString(p.ID)
	return personaResponse{
		ID:       id,
		Name:     p.Name,
		ShortBio: p.ShortBio,
		Created:  p.Created,
	}
}

type uploadResponse struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	URL            string    `json:"url"`
	Persona        *string   `json:"persona,omitempty"`
	TrainingStatus string    `json:"training_status"`
	MissingConfig  []string  `json:"missing_config,omitempty"`
	Created        time.Time `json:"created,omitempty"`
}

func toUploadResponse(u *models.Upload, status models.TrainingStatus, missing []string) uploadResponse {
	id, _ := models.RecordIDString(u.ID)
	return uploadResponse{
		ID:             id,
		Filename:       u.Filename,
		URL:            u.URL,
		Persona:        u.Persona,
		TrainingStatus: string(status),
		MissingConfig:  missing,
		Created:        u.Created,
	}
}

type messageResponse struct {
	ID            string    `json:"id"`
	Conversation  string    `json:"conversation"`
	Content       string    `json:"content"`
	AuthorKind    string    `json:"author_kind"`
	AuthorPersona *string   `json:"author_persona,omitempty"`
	Created       time.Time `json:"created,omitempty"`
}

func toMessageResponse(m *models.Message) messageResponse {
	id, _ := models.RecordIDString(m.ID)
	return messageResponse{
		ID:            id,
		Conversation:  m.Conversation,
		Content:       m.Content,
		AuthorKind:    string(m.AuthorKind),
		AuthorPersona: m.AuthorPersona,
		Created:       m.Created,
	}
}

func toMessageResponses(messages []models.Message) []messageResponse {
	out := make([]messageResponse, len(messages))
	for i := range messages {
		out[i] = toMessageResponse(&messages[i])
	}
	return out
}

type debateResponse struct {
	ID           string                     `json:"id"`
	Topic        string                     `json:"topic"`
	Conversation string                     `json:"conversation"`
	Participants []models.DebateParticipant `json:"participants"`
	Created      time.Time                  `json:"created,omitempty"`
}

func toDebateResponse(d *models.Debate) debateResponse {
	id, _ := models.RecordIDString(d.ID)
	return debateResponse{
		ID:           id,
		Topic:        d.Topic,
		Conversation: d.Conversation,
		Participants: d.Participants,
		Created:      d.Created,
	}
}
