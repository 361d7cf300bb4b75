package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sophia-labs/sophia/internal/config"
	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/training"
)

var ErrUploadNotFound = errors.New("upload not found")

// uploadStore is the persistence slice uploads need.
type uploadStore interface {
	CreateUpload(ctx context.Context, filename, url string, personaID *string) (*models.Upload, error)
	GetUpload(ctx context.Context, id string) (*models.Upload, error)
	SetUploadTrainingStatus(ctx context.Context, id string, status models.TrainingStatus) error
	GetPersona(ctx context.Context, id string) (*models.Persona, error)
}

// trainer starts background training runs.
type trainer interface {
	Submit(upload models.Upload, document []byte, personaID *string) *training.Job
}

// UploadService persists uploads and kicks off training. Upload persistence
// and training are deliberately decoupled: an upload always lands, training
// may be skipped or fail afterwards.
type UploadService struct {
	store    uploadStore
	pipeline trainer
	canTrain func() config.ServiceCheck
	logger   *slog.Logger
}

func NewUploadService(store uploadStore, pipeline trainer, canTrain func() config.ServiceCheck, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:    store,
		pipeline: pipeline,
		canTrain: canTrain,
		logger:   logger,
	}
}

// IngestResult reports what happened to a new upload.
type IngestResult struct {
	Upload *models.Upload
	// Status is the training disposition at ingest time: started when a
	// background run was submitted, skipped when configuration is missing.
	Status models.TrainingStatus
	// MissingConfig names the configuration keys that prevented training.
	MissingConfig []string
	// Job is the background training handle, nil when skipped.
	Job *training.Job
}

// Ingest stores the upload and, when the LLM stack is configured, starts
// training in the background.
func (s *UploadService) Ingest(ctx context.Context, filename, url string, personaID *string, document []byte) (*IngestResult, error) {
	if personaID != nil {
		persona, err := s.store.GetPersona(ctx, *personaID)
		if err != nil {
			return nil, fmt.Errorf("resolve persona: %w", err)
		}
		if persona == nil {
			return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, *personaID)
		}
	}

	upload, err := s.store.CreateUpload(ctx, filename, url, personaID)
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	uploadID, err := models.RecordIDString(upload.ID)
	if err != nil {
		return nil, fmt.Errorf("upload id: %w", err)
	}

	if check := s.canTrain(); !check.OK {
		s.logger.Warn("training skipped, configuration incomplete",
			"upload", uploadID, "missing", check.Missing)
		if err := s.store.SetUploadTrainingStatus(ctx, uploadID, models.TrainingSkipped); err != nil {
			return nil, fmt.Errorf("mark upload skipped: %w", err)
		}
		upload.TrainingStatus = models.TrainingSkipped
		return &IngestResult{
			Upload:        upload,
			Status:        models.TrainingSkipped,
			MissingConfig: check.Missing,
		}, nil
	}

	job := s.pipeline.Submit(*upload, document, personaID)
	s.logger.Info("training started", "upload", uploadID, "filename", filename)
	return &IngestResult{
		Upload: upload,
		Status: models.TrainingStarted,
		Job:    job,
	}, nil
}

// Get returns an upload with its current training status.
func (s *UploadService) Get(ctx context.Context, id string) (*models.Upload, error) {
	upload, err := s.store.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, id)
	}
	return upload, nil
}
