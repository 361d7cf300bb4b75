package server

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/service"
)

// maxUploadMemory bounds the multipart parse buffer; larger files spill to
// temp storage.
const maxUploadMemory = 10 << 20

// UploadAPI is the upload service surface the handler needs.
type UploadAPI interface {
	Ingest(ctx context.Context, filename, url string, personaID *string, document []byte) (*service.IngestResult, error)
	Get(ctx context.Context, id string) (*models.Upload, error)
}

// UploadHandler serves document ingestion.
type UploadHandler struct {
	uploads UploadAPI
}

func NewUploadHandler(uploads UploadAPI) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Create accepts a multipart form with a "file" part and optional "url" and
// "persona" fields. It answers as soon as the upload is persisted; training
// continues in the background and its outcome lands on the upload record.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading file")
		return
	}

	url := r.FormValue("url")
	if url == "" {
		url = "file://" + header.Filename
	}

	var personaID *string
	if persona := r.FormValue("persona"); persona != "" {
		personaID = &persona
	}

	result, err := h.uploads.Ingest(r.Context(), header.Filename, url, personaID, document)
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusAccepted, toUploadResponse(result.Upload, result.Status, result.MissingConfig))
}

func (h *UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	upload, err := h.uploads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	success(w, http.StatusOK, toUploadResponse(upload, upload.TrainingStatus, nil))
}
