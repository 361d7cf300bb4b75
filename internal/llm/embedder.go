// Package llm provides embedding and completion clients used by training
// and retrieval.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sophia-labs/sophia/internal/config"
	"github.com/sophia-labs/sophia/internal/metrics"
)

// ErrEmbeddingService marks transport failures against the embedding
// backend. Callers own the retry decision; there is no caching layer, so
// repeated calls cost repeated requests.
var ErrEmbeddingService = errors.New("embedding service unavailable")

// defaultCallTimeout bounds every remote embedding call. Unbounded remote
// calls are the largest availability risk in the pipeline.
const defaultCallTimeout = 60 * time.Second

// Embedder wraps a langchaingo embedding model with dimension validation
// and per-call deadlines.
type Embedder struct {
	model       embeddings.Embedder
	dimension   int
	modelName   string
	callTimeout time.Duration
}

// NewEmbedder creates an embedder based on configuration.
func NewEmbedder(cfg config.Config) (*Embedder, error) {
	var model embeddings.Embedder
	var err error

	switch cfg.EmbedProvider {
	case config.ProviderOllama:
		llm, ollamaErr := ollama.New(
			ollama.WithModel(cfg.EmbedModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if ollamaErr != nil {
			return nil, fmt.Errorf("create ollama client: %w", ollamaErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}

	case config.ProviderOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		llm, openaiErr := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithEmbeddingModel(cfg.EmbedModel),
		)
		if openaiErr != nil {
			return nil, fmt.Errorf("create openai client: %w", openaiErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbedProvider)
	}

	return &Embedder{
		model:       model,
		dimension:   cfg.EmbedDimension,
		modelName:   cfg.EmbedModel,
		callTimeout: defaultCallTimeout,
	}, nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	start := time.Now()
	vectors, err := e.model.EmbedDocuments(ctx, texts)
	metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	if err != nil {
		slog.Warn("embedding batch failed", "model", e.modelName, "texts", len(texts),
			"duration_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, fmt.Errorf("%w: embed %d texts: %v", ErrEmbeddingService, len(texts), err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("embedding %d dimension mismatch: got %d, want %d", i, len(v), e.dimension)
		}
	}

	return vectors, nil
}

// EmbedQuery generates a single query embedding.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	start := time.Now()
	vector, err := e.model.EmbedQuery(ctx, text)
	metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrEmbeddingService, err)
	}
	if len(vector) != e.dimension {
		return nil, fmt.Errorf("query embedding dimension mismatch: got %d, want %d", len(vector), e.dimension)
	}
	return vector, nil
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.modelName
}

// Dimension returns the expected embedding dimension.
// Must match the chunk HNSW index dimension in the schema.
func (e *Embedder) Dimension() int {
	return e.dimension
}
