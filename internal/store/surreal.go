package store

import (
	"context"

	"github.com/sophia-labs/sophia/internal/db"
	"github.com/sophia-labs/sophia/internal/models"
)

// SurrealVectorStore serves vector search from the chunk table's HNSW index.
type SurrealVectorStore struct {
	client *db.Client
}

var _ VectorStore = (*SurrealVectorStore)(nil)

func NewSurrealVectorStore(client *db.Client) *SurrealVectorStore {
	return &SurrealVectorStore{client: client}
}

func (s *SurrealVectorStore) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	return s.client.UpsertChunks(ctx, chunks)
}

func (s *SurrealVectorStore) SearchChunks(ctx context.Context, embedding []float32, topK int, personaID *string) ([]models.ChunkMatch, error) {
	return s.client.SearchChunks(ctx, embedding, topK, personaID)
}

// SurrealGraphStore serves the knowledge graph from the entity and relates
// tables.
type SurrealGraphStore struct {
	client *db.Client
}

var _ GraphStore = (*SurrealGraphStore)(nil)

func NewSurrealGraphStore(client *db.Client) *SurrealGraphStore {
	return &SurrealGraphStore{client: client}
}

func (s *SurrealGraphStore) MergeFacts(ctx context.Context, facts []models.Fact, personaID *string) error {
	return s.client.MergeFacts(ctx, facts, personaID)
}

func (s *SurrealGraphStore) SearchFacts(ctx context.Context, keywords []string, personaID *string) ([]models.Fact, error) {
	edges, err := s.client.SearchFacts(ctx, keywords, personaID)
	if err != nil {
		return nil, err
	}
	facts := make([]models.Fact, 0, len(edges))
	for _, edge := range edges {
		facts = append(facts, models.Fact{
			Subject:   edge.Subject,
			Predicate: edge.Relation,
			Object:    edge.Object,
		})
	}
	return facts, nil
}
