package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/sophia-labs/sophia/internal/metrics"
	"github.com/sophia-labs/sophia/internal/models"
)

// chunkRow is the projection returned by vector searches.
type chunkRow struct {
	ID        surrealmodels.RecordID `json:"id"`
	Content   string                 `json:"content"`
	SourceURL string                 `json:"source_url"`
	Score     float64                `json:"score"`
}

// UpsertChunk writes a single chunk keyed by its deterministic id.
// Re-uploading the same id overwrites the previous record.
func (c *Client) UpsertChunk(ctx context.Context, chunk models.Chunk) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("chunk", $id) CONTENT {
			content: $content,
			embedding: $embedding,
			persona: $persona,
			source_url: $source_url,
			upload: $upload,
			page: $page,
			chunk_index: $chunk_index
		}
	`, map[string]any{
		"id":          chunk.ID,
		"content":     chunk.Content,
		"embedding":   chunk.Embedding,
		"persona":     chunk.Persona,
		"source_url":  chunk.SourceURL,
		"upload":      chunk.Upload,
		"page":        chunk.Page,
		"chunk_index": chunk.ChunkIndex,
	})
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", chunk.ID, wrapQueryError(err))
	}
	return nil
}

// UpsertChunks writes a batch of chunks.
func (c *Client) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	for _, chunk := range chunks {
		if err := c.UpsertChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// SearchChunks runs an exact-k nearest-neighbor query over the chunk HNSW
// index, filtered server-side by persona when personaID is non-nil.
func (c *Client) SearchChunks(ctx context.Context, embedding []float32, topK int, personaID *string) ([]models.ChunkMatch, error) {
	personaClause := ""
	if personaID != nil {
		personaClause = "AND persona = $persona"
	}

	sql := fmt.Sprintf(`
		SELECT id, content, source_url,
			vector::similarity::cosine(embedding, $emb) AS score
		FROM chunk
		WHERE embedding <|%d,40|> $emb %s
		ORDER BY score DESC
		LIMIT $k
	`, topK, personaClause)

	vars := map[string]any{
		"emb": embedding,
		"k":   topK,
	}
	if personaID != nil {
		vars["persona"] = *personaID
	}

	start := time.Now()
	results, err := surrealdb.Query[[]chunkRow](ctx, c.db, sql, vars)
	metrics.RecordTiming(metrics.OpVectorSearch, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.ChunkMatch{}, nil
	}

	rows := (*results)[0].Result
	matches := make([]models.ChunkMatch, 0, len(rows))
	for _, row := range rows {
		id, err := models.RecordIDString(row.ID)
		if err != nil {
			return nil, fmt.Errorf("chunk id: %w", err)
		}
		matches = append(matches, models.ChunkMatch{
			ID:        id,
			Content:   row.Content,
			SourceURL: row.SourceURL,
			Score:     row.Score,
		})
	}
	return matches, nil
}

// CountChunks returns the number of indexed chunks, optionally scoped to a
// persona. Used by status reporting and tests.
func (c *Client) CountChunks(ctx context.Context, personaID *string) (int, error) {
	personaClause := ""
	if personaID != nil {
		personaClause = "WHERE persona = $persona"
	}

	sql := fmt.Sprintf(`SELECT count() AS count FROM chunk %s GROUP ALL`, personaClause)

	vars := map[string]any{}
	if personaID != nil {
		vars["persona"] = *personaID
	}

	type countRow struct {
		Count int `json:"count"`
	}
	results, err := surrealdb.Query[[]countRow](ctx, c.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}
