// Package models defines data structures for the Sophia knowledge engine.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Persona is a named character profile used to style LLM responses and to
// scope retrieval. Consumed read-only by the response pipeline.
type Persona struct {
	ID       surrealmodels.RecordID `json:"id"`
	Name     string                 `json:"name"`
	ShortBio string                 `json:"short_bio"`
	Created  time.Time              `json:"created,omitempty"`
}

// PersonaInput is the input structure for creating personas.
type PersonaInput struct {
	Name     string `json:"name"`
	ShortBio string `json:"short_bio"`
}

// TrainingStatus reports the outcome of the enrichment pipeline for an
// upload. Upload persistence succeeds independently of training.
type TrainingStatus string

const (
	TrainingStarted   TrainingStatus = "started"
	TrainingCompleted TrainingStatus = "completed"
	TrainingSkipped   TrainingStatus = "skipped"
	TrainingFailed    TrainingStatus = "failed"
)

// Upload is the metadata record for an ingested source document.
type Upload struct {
	ID             surrealmodels.RecordID `json:"id"`
	Filename       string                 `json:"filename"`
	URL            string                 `json:"url"`
	Persona        *string                `json:"persona,omitempty"`
	TrainingStatus TrainingStatus         `json:"training_status"`
	Created        time.Time              `json:"created,omitempty"`
}
