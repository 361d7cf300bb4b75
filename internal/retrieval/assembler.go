// Package retrieval assembles prompt context from hybrid search: vector
// similarity over chunks plus keyword matching over the knowledge graph.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/store"
)

// queryEmbedder is the slice of the embedding client retrieval needs.
type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// relationToText renders canonical relation types as readable verbs.
// Unknown relation types fall back to their lowercased form.
var relationToText = map[string]string{
	"HAS":        "includes",
	"PART_OF":    "is part of",
	"DESCRIBES":  "describes",
	"RELATES_TO": "relates to",
}

// Assembler runs both retrieval branches and formats the combined context.
type Assembler struct {
	embedder queryEmbedder
	vectors  store.VectorStore
	graph    store.GraphStore
	topK     int
	maxHints int
	logger   *slog.Logger
}

// NewAssembler creates a context assembler with production limits.
func NewAssembler(embedder queryEmbedder, vectors store.VectorStore, graph store.GraphStore, logger *slog.Logger) *Assembler {
	return &Assembler{
		embedder: embedder,
		vectors:  vectors,
		graph:    graph,
		topK:     models.DefaultTopK,
		maxHints: models.MaxRelationHints,
		logger:   logger,
	}
}

// Assemble retrieves context for a query, scoped to a persona when personaID
// is non-nil. The two branches run concurrently. A vector branch failure
// fails the whole assembly; a graph branch failure only degrades the context
// to chunks without relation hints.
func (a *Assembler) Assemble(ctx context.Context, query string, personaID *string) (*models.RetrievedContext, error) {
	var (
		wg        sync.WaitGroup
		chunks    []models.ChunkMatch
		facts     []models.Fact
		vectorErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		embedding, err := a.embedder.EmbedQuery(ctx, query)
		if err != nil {
			vectorErr = fmt.Errorf("embed query: %w", err)
			return
		}
		chunks, err = a.vectors.SearchChunks(ctx, embedding, a.topK, personaID)
		if err != nil {
			vectorErr = fmt.Errorf("search chunks: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		keywords := store.ExtractKeywords(query)
		matched, err := a.graph.SearchFacts(ctx, keywords, personaID)
		if err != nil {
			a.logger.Warn("graph search failed, continuing without relation hints", "error", err)
			return
		}
		facts = matched
	}()
	wg.Wait()

	if vectorErr != nil {
		return nil, vectorErr
	}

	hints := renderHints(facts, a.maxHints)
	return &models.RetrievedContext{
		Chunks:        chunks,
		RelationHints: hints,
		Text:          formatContext(chunks, hints),
	}, nil
}

// renderHints turns graph facts into readable hint lines, capped at limit.
func renderHints(facts []models.Fact, limit int) []string {
	hints := make([]string, 0, min(len(facts), limit))
	for _, fact := range facts {
		if len(hints) == limit {
			break
		}
		verb, ok := relationToText[strings.ToUpper(fact.Predicate)]
		if !ok {
			verb = strings.ToLower(fact.Predicate)
		}
		hints = append(hints, fmt.Sprintf("%s %s %s", fact.Subject, verb, fact.Object))
	}
	return hints
}

// formatContext builds the prompt text. The "(Source: url, Score: 0.000)"
// suffix format is load-bearing: citation extraction regex-matches it.
func formatContext(chunks []models.ChunkMatch, hints []string) string {
	var sb strings.Builder

	sb.WriteString("Relevant Chunks:\n")
	if len(chunks) == 0 {
		sb.WriteString("None.\n")
	}
	for i, chunk := range chunks {
		fmt.Fprintf(&sb, "Chunk %d:\n%s\n(Source: %s, Score: %.3f)\n\n",
			i+1, chunk.Content, chunk.SourceURL, chunk.Score)
	}

	sb.WriteString("\nRelevant Relations From Knowledge Graph:\n")
	if len(hints) == 0 {
		sb.WriteString("None.\n")
	}
	for _, hint := range hints {
		sb.WriteString(hint)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String())
}
