package training

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/parser"
	"github.com/sophia-labs/sophia/internal/store"
)

// Stage identifies where a training job currently is.
type Stage string

const (
	StageLoading           Stage = "loading"
	StageEmbedding         Stage = "embedding"
	StageExtracting        Stage = "extracting_triplets"
	StagePersistingVectors Stage = "persisting_vectors"
	StagePersistingGraph   Stage = "persisting_graph"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// embedBatchSize is how many chunk texts go into one embedding request.
const embedBatchSize = 50

// embedder is the slice of the embedding client the pipeline needs.
type embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// uploadStatusStore records the training outcome on the upload record.
type uploadStatusStore interface {
	SetUploadTrainingStatus(ctx context.Context, id string, status models.TrainingStatus) error
}

// Pipeline runs document training end to end: extract page text, chunk,
// embed, extract triplets, persist vectors and graph facts.
type Pipeline struct {
	embedder   embedder
	extractor  *TripletExtractor
	vectors    store.VectorStore
	graph      store.GraphStore
	uploads    uploadStatusStore
	loadPages  func(document []byte) ([]parser.Page, error)
	chunkCfg   parser.ChunkConfig
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewPipeline wires a training pipeline.
func NewPipeline(
	emb embedder,
	extractor *TripletExtractor,
	vectors store.VectorStore,
	graph store.GraphStore,
	uploads uploadStatusStore,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		embedder:   emb,
		extractor:  extractor,
		vectors:    vectors,
		graph:      graph,
		uploads:    uploads,
		loadPages:  parser.ExtractPDFPages,
		chunkCfg:   parser.DefaultChunkConfig(),
		attempts:   defaultRetryAttempts,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}
}

// JobStatus is a point-in-time snapshot of a training job.
type JobStatus struct {
	Stage          Stage
	Chunks         int
	Facts          int
	SkippedBatches int
	Err            error
}

// Job is the observable handle for one training run.
type Job struct {
	UploadID string

	mu     sync.Mutex
	status JobStatus
	done   chan struct{}
}

// Status returns the current job snapshot.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Done is closed when the job reaches a terminal stage.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx expires, then returns the job's
// terminal error.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.done:
		return j.Status().Err
	}
}

func (j *Job) setStage(stage Stage) {
	j.mu.Lock()
	j.status.Stage = stage
	j.mu.Unlock()
}

func (j *Job) update(fn func(*JobStatus)) {
	j.mu.Lock()
	fn(&j.status)
	j.mu.Unlock()
}

// Submit starts training in the background and returns immediately. The job
// detaches from the caller's context: an HTTP request finishing must not
// abort a half-persisted training run.
func (p *Pipeline) Submit(upload models.Upload, document []byte, personaID *string) *Job {
	uploadID, err := models.RecordIDString(upload.ID)
	if err != nil {
		uploadID = upload.Filename
	}

	job := &Job{
		UploadID: uploadID,
		status:   JobStatus{Stage: StageLoading},
		done:     make(chan struct{}),
	}

	go func() {
		defer close(job.done)
		ctx := context.Background()

		if err := p.run(ctx, job, uploadID, upload, document, personaID); err != nil {
			job.update(func(s *JobStatus) {
				s.Stage = StageFailed
				s.Err = err
			})
			p.logger.Error("training failed", "upload", uploadID, "error", err)
			if statusErr := p.uploads.SetUploadTrainingStatus(ctx, uploadID, models.TrainingFailed); statusErr != nil {
				p.logger.Error("recording failed training status", "upload", uploadID, "error", statusErr)
			}
			return
		}

		job.setStage(StageDone)
		if statusErr := p.uploads.SetUploadTrainingStatus(ctx, uploadID, models.TrainingCompleted); statusErr != nil {
			p.logger.Error("recording completed training status", "upload", uploadID, "error", statusErr)
		}
	}()

	return job
}

// Run trains synchronously. The CLI path uses this; the server path goes
// through Submit.
func (p *Pipeline) Run(ctx context.Context, upload models.Upload, document []byte, personaID *string) error {
	job := p.Submit(upload, document, personaID)
	return job.Wait(ctx)
}

func (p *Pipeline) run(ctx context.Context, job *Job, uploadID string, upload models.Upload, document []byte, personaID *string) error {
	start := time.Now()

	pages, err := p.loadPages(document)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	pageChunks := parser.ChunkPages(pages, p.chunkCfg)
	if len(pageChunks) == 0 {
		return fmt.Errorf("document produced no chunks")
	}
	job.update(func(s *JobStatus) { s.Chunks = len(pageChunks) })

	job.setStage(StageEmbedding)
	chunks, err := p.embedChunks(ctx, uploadID, upload, pageChunks, personaID)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	job.setStage(StageExtracting)
	texts := make([]string, len(pageChunks))
	for i, pc := range pageChunks {
		texts[i] = pc.Text
	}
	facts, skipped, err := p.extractor.Extract(ctx, texts)
	if err != nil {
		return fmt.Errorf("extract triplets: %w", err)
	}
	job.update(func(s *JobStatus) {
		s.Facts = len(facts)
		s.SkippedBatches = skipped
	})
	if skipped > 0 {
		p.logger.Warn("extraction skipped batches", "upload", uploadID, "skipped", skipped)
	}

	job.setStage(StagePersistingVectors)
	err = withRetry(ctx, p.attempts, p.retryDelay, func() error {
		return p.vectors.UpsertChunks(ctx, chunks)
	})
	if err != nil {
		return fmt.Errorf("persist vectors: %w", err)
	}

	job.setStage(StagePersistingGraph)
	err = withRetry(ctx, p.attempts, p.retryDelay, func() error {
		return p.graph.MergeFacts(ctx, facts, personaID)
	})
	if err != nil {
		return fmt.Errorf("persist graph: %w", err)
	}

	p.logger.Info("training complete",
		"upload", uploadID,
		"pages", len(pages),
		"chunks", len(chunks),
		"facts", len(facts),
		"skipped_batches", skipped,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// embedChunks embeds chunk texts in batches and builds the persistable
// records. Chunk ids derive from upload, page, and index, so re-training the
// same upload overwrites rather than duplicates.
func (p *Pipeline) embedChunks(ctx context.Context, uploadID string, upload models.Upload, pageChunks []parser.PageChunk, personaID *string) ([]models.Chunk, error) {
	chunks := make([]models.Chunk, 0, len(pageChunks))

	for start := 0; start < len(pageChunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(pageChunks))
		batch := pageChunks[start:end]

		texts := make([]string, len(batch))
		for i, pc := range batch {
			texts[i] = pc.Text
		}

		var vectors [][]float32
		err := withRetry(ctx, p.attempts, p.retryDelay, func() error {
			var embedErr error
			vectors, embedErr = p.embedder.EmbedBatch(ctx, texts)
			return embedErr
		})
		if err != nil {
			return nil, err
		}

		for i, pc := range batch {
			page := pc.Page
			chunks = append(chunks, models.Chunk{
				ID:         models.ChunkID(uploadID, pc.Page, pc.Index),
				Content:    pc.Text,
				Persona:    personaID,
				SourceURL:  upload.URL,
				Upload:     uploadID,
				Page:       &page,
				ChunkIndex: pc.Index,
				Embedding:  vectors[i],
			})
		}
	}

	return chunks, nil
}
