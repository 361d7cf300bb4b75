package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sophia-labs/sophia/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server.

Serves personas, uploads, chat, debates, and context preview under /api.
Listens on SOPHIA_LISTEN_ADDR (default :8090). Shuts down gracefully on
SIGINT or SIGTERM, letting in-flight generation finish.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildStack(ctx)
		if err != nil {
			return err
		}

		router := server.NewRouter(server.RouterConfig{
			Personas:   server.NewPersonaHandler(dbClient),
			Uploads:    server.NewUploadHandler(app.uploads),
			Chat:       server.NewChatHandler(app.chat, app.assembler),
			Debates:    server.NewDebateHandler(app.debates),
			CanTrain:   cfg.CanTrain,
			CanRespond: cfg.CanRespond,
			Logger:     logger,
		})

		return server.New(cfg.ListenAddr, router, logger).Run(ctx)
	},
}
