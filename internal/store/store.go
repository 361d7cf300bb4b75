// Package store defines the storage capabilities retrieval and training
// depend on, plus their SurrealDB adapters. Consumers hold the interfaces so
// tests can substitute fakes without a database.
package store

import (
	"context"

	"github.com/sophia-labs/sophia/internal/models"
)

// VectorStore persists embedded chunks and answers nearest-neighbor queries.
type VectorStore interface {
	// UpsertChunks writes chunks keyed by their deterministic ids.
	// Writing the same id twice overwrites, never duplicates.
	UpsertChunks(ctx context.Context, chunks []models.Chunk) error
	// SearchChunks returns the topK most similar chunks for the embedding,
	// scoped to a persona when personaID is non-nil.
	SearchChunks(ctx context.Context, embedding []float32, topK int, personaID *string) ([]models.ChunkMatch, error)
}

// GraphStore persists extracted facts as a knowledge graph and matches
// edges by keyword.
type GraphStore interface {
	// MergeFacts merges facts into the graph. Merging the same fact twice
	// leaves the graph unchanged.
	MergeFacts(ctx context.Context, facts []models.Fact, personaID *string) error
	// SearchFacts returns edges whose subject, object, or predicate contains
	// any of the keywords. Empty keywords yield an empty result.
	SearchFacts(ctx context.Context, keywords []string, personaID *string) ([]models.Fact, error)
}
