package models

import "fmt"

// Chunk is a bounded text window from a source document, embedded and
// indexed for similarity search. Immutable once indexed.
type Chunk struct {
	// ID is deterministic: "{uploadID}-{page}-{index}". Re-training the same
	// upload overwrites rather than duplicates.
	ID string `json:"id"`

	Content    string  `json:"content"`
	Persona    *string `json:"persona,omitempty"`
	SourceURL  string  `json:"source_url"`
	Upload     string  `json:"upload"`
	Page       *int    `json:"page,omitempty"`
	ChunkIndex int     `json:"chunk_index"`

	Embedding []float32 `json:"embedding,omitempty"`
}

// ChunkID builds the deterministic chunk identifier.
func ChunkID(uploadID string, page, index int) string {
	return fmt.Sprintf("%s-%d-%d", uploadID, page, index)
}

// ChunkMatch is one ranked vector search result.
type ChunkMatch struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	SourceURL string  `json:"source_url"`
	Score     float64 `json:"score"`
}
