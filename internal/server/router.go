package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sophia-labs/sophia/internal/config"
	"github.com/sophia-labs/sophia/internal/metrics"
)

// RouterConfig bundles the handlers and checks the router serves.
type RouterConfig struct {
	Personas   *PersonaHandler
	Uploads    *UploadHandler
	Chat       *ChatHandler
	Debates    *DebateHandler
	CanTrain   func() config.ServiceCheck
	CanRespond func() config.ServiceCheck
	Logger     *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Generous because document uploads come through here.
	const maxBody int64 = 50 * 1024 * 1024

	r.Use(requestID)
	r.Use(accessLog(cfg.Logger))
	r.Use(maxBodyBytes(maxBody))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/config/status", configStatus(cfg.CanTrain, cfg.CanRespond))
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			success(w, http.StatusOK, metrics.Default().Snapshot())
		})

		r.Route("/personas", func(r chi.Router) {
			r.Post("/", cfg.Personas.Create)
			r.Get("/", cfg.Personas.List)
			r.Get("/{id}", cfg.Personas.Get)
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", cfg.Uploads.Create)
			r.Get("/{id}", cfg.Uploads.Get)
		})

		r.Post("/chat", cfg.Chat.Send)
		r.Get("/conversations/{id}/messages", cfg.Chat.Messages)
		r.Post("/context/preview", cfg.Chat.Preview)

		r.Route("/debates", func(r chi.Router) {
			r.Post("/", cfg.Debates.Create)
			r.Get("/{id}", cfg.Debates.Get)
			r.Post("/{id}/turn", cfg.Debates.Turn)
			r.Get("/{id}/messages", cfg.Debates.Messages)
		})
	})

	return r
}

type serviceStatus struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"missing,omitempty"`
}

// configStatus reports which capabilities the current configuration
// supports, so clients can explain a skipped training or disabled chat.
func configStatus(canTrain, canRespond func() config.ServiceCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		train := canTrain()
		respond := canRespond()
		success(w, http.StatusOK, map[string]serviceStatus{
			"training":   {OK: train.OK, Missing: train.Missing},
			"responding": {OK: respond.OK, Missing: respond.Missing},
		})
	}
}
