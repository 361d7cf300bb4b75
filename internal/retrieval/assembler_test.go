package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophia-labs/sophia/internal/models"
)

type fakeQueryEmbedder struct {
	fail bool
}

func (f *fakeQueryEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding down")
	}
	return []float32{0.1, 0.2}, nil
}

type fakeVectors struct {
	matches []models.ChunkMatch
	gotTopK int
	fail    bool
}

func (f *fakeVectors) UpsertChunks(context.Context, []models.Chunk) error { return nil }

func (f *fakeVectors) SearchChunks(_ context.Context, _ []float32, topK int, _ *string) ([]models.ChunkMatch, error) {
	f.gotTopK = topK
	if f.fail {
		return nil, errors.New("db down")
	}
	return f.matches, nil
}

type fakeGraph struct {
	facts       []models.Fact
	gotKeywords []string
	fail        bool
}

func (f *fakeGraph) MergeFacts(context.Context, []models.Fact, *string) error { return nil }

func (f *fakeGraph) SearchFacts(_ context.Context, keywords []string, _ *string) ([]models.Fact, error) {
	f.gotKeywords = keywords
	if f.fail {
		return nil, errors.New("db down")
	}
	if len(keywords) == 0 {
		return []models.Fact{}, nil
	}
	return f.facts, nil
}

func newTestAssembler(vectors *fakeVectors, graph *fakeGraph) *Assembler {
	return NewAssembler(&fakeQueryEmbedder{}, vectors, graph, slog.New(slog.DiscardHandler))
}

func TestAssembleCombinesBothBranches(t *testing.T) {
	vectors := &fakeVectors{matches: []models.ChunkMatch{
		{ID: "u1-1-0", Content: "Einstein worked at the patent office.", SourceURL: "https://files.example.com/einstein.pdf", Score: 0.91},
	}}
	graph := &fakeGraph{facts: []models.Fact{
		{Subject: "Einstein", Predicate: "RELATES_TO", Object: "Bern"},
	}}

	rc, err := newTestAssembler(vectors, graph).Assemble(context.Background(), "Where did Einstein work?", nil)

	require.NoError(t, err)
	assert.Equal(t, models.DefaultTopK, vectors.gotTopK)
	assert.Equal(t, []string{"einstein", "work"}, graph.gotKeywords)
	require.Len(t, rc.Chunks, 1)
	assert.Equal(t, []string{"Einstein relates to Bern"}, rc.RelationHints)

	assert.Contains(t, rc.Text, "Relevant Chunks:\nChunk 1:\nEinstein worked at the patent office.\n(Source: https://files.example.com/einstein.pdf, Score: 0.910)")
	assert.Contains(t, rc.Text, "Relevant Relations From Knowledge Graph:\nEinstein relates to Bern")
}

func TestAssembleCapsRelationHints(t *testing.T) {
	var facts []models.Fact
	for i := 0; i < 30; i++ {
		facts = append(facts, models.Fact{
			Subject:   fmt.Sprintf("node%d", i),
			Predicate: "HAS",
			Object:    "property",
		})
	}
	graph := &fakeGraph{facts: facts}

	rc, err := newTestAssembler(&fakeVectors{}, graph).Assemble(context.Background(), "nodes", nil)

	require.NoError(t, err)
	assert.Len(t, rc.RelationHints, models.MaxRelationHints)
	assert.Equal(t, "node0 includes property", rc.RelationHints[0])
}

func TestAssembleRendersKnownRelationTypes(t *testing.T) {
	graph := &fakeGraph{facts: []models.Fact{
		{Subject: "A", Predicate: "HAS", Object: "B"},
		{Subject: "C", Predicate: "part_of", Object: "D"},
		{Subject: "E", Predicate: "DESCRIBES", Object: "F"},
		{Subject: "G", Predicate: "Mentored", Object: "H"},
	}}

	rc, err := newTestAssembler(&fakeVectors{}, graph).Assemble(context.Background(), "relations", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"A includes B",
		"C is part of D",
		"E describes F",
		"G mentored H",
	}, rc.RelationHints)
}

func TestAssembleStopwordOnlyQuerySkipsGraph(t *testing.T) {
	graph := &fakeGraph{facts: []models.Fact{
		{Subject: "A", Predicate: "HAS", Object: "B"},
	}}

	rc, err := newTestAssembler(&fakeVectors{}, graph).Assemble(context.Background(), "what is it", nil)

	require.NoError(t, err)
	assert.Empty(t, graph.gotKeywords)
	assert.Empty(t, rc.RelationHints)
	assert.Contains(t, rc.Text, "Relevant Relations From Knowledge Graph:\nNone.")
}

func TestAssembleGraphFailureDegrades(t *testing.T) {
	vectors := &fakeVectors{matches: []models.ChunkMatch{
		{ID: "c1", Content: "content", SourceURL: "https://x.example.com/a.pdf", Score: 0.5},
	}}
	graph := &fakeGraph{fail: true}

	rc, err := newTestAssembler(vectors, graph).Assemble(context.Background(), "query terms", nil)

	require.NoError(t, err)
	assert.Len(t, rc.Chunks, 1)
	assert.Empty(t, rc.RelationHints)
}

func TestAssembleVectorFailureIsFatal(t *testing.T) {
	vectors := &fakeVectors{fail: true}

	_, err := newTestAssembler(vectors, &fakeGraph{}).Assemble(context.Background(), "query", nil)

	assert.Error(t, err)
}

func TestAssembleEmbeddingFailureIsFatal(t *testing.T) {
	assembler := NewAssembler(&fakeQueryEmbedder{fail: true}, &fakeVectors{}, &fakeGraph{}, slog.New(slog.DiscardHandler))

	_, err := assembler.Assemble(context.Background(), "query", nil)

	assert.Error(t, err)
}
