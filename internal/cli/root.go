// Package cli provides the sophia command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sophia-labs/sophia/internal/config"
	"github.com/sophia-labs/sophia/internal/db"
	"github.com/sophia-labs/sophia/internal/debate"
	"github.com/sophia-labs/sophia/internal/llm"
	"github.com/sophia-labs/sophia/internal/respond"
	"github.com/sophia-labs/sophia/internal/retrieval"
	"github.com/sophia-labs/sophia/internal/service"
	"github.com/sophia-labs/sophia/internal/store"
	"github.com/sophia-labs/sophia/internal/training"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	logger    *slog.Logger
	logCloser func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sophia",
	Short: "Persona-grounded conversational knowledge engine",
	Long: `Sophia trains personas from source documents and lets you talk to them.

Uploaded PDFs are chunked, embedded, and mined for knowledge graph facts.
Questions are answered from hybrid retrieval (vector similarity plus graph
relations) in the persona's voice, with verified source citations. Two
trained personas can debate a topic turn by turn.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCloser = config.SetupLogger(cfg.LogFile, level)

		// Remote status talks HTTP only; no database needed.
		if cmd.Name() == "status" && statusServer != "" {
			return nil
		}

		if cmd.Name() == "init" && cfg.SurrealDBPass == "" {
			password, err := promptPassword("SurrealDB password: ")
			if err != nil {
				return err
			}
			cfg.SurrealDBPass = password
		}

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCloser != nil {
			_ = logCloser()
		}
	},
}

// stack bundles the wired application services.
type stack struct {
	embedder  *llm.Embedder
	completer llm.Completer
	assembler *retrieval.Assembler
	pipeline  *training.Pipeline
	chat      *service.ChatService
	uploads   *service.UploadService
	debates   *service.DebateService
}

// buildStack wires the LLM-backed services. Commands that only touch the
// database never call this, so they work without any API keys.
func buildStack(ctx context.Context) (*stack, error) {
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	completer, err := llm.NewCompleter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init completion model: %w", err)
	}

	vectors := store.NewSurrealVectorStore(dbClient)
	graph := store.NewSurrealGraphStore(dbClient)

	assembler := retrieval.NewAssembler(embedder, vectors, graph, logger)
	generator := respond.NewGenerator(completer, logger)
	extractor := training.NewTripletExtractor(completer, logger)
	pipeline := training.NewPipeline(embedder, extractor, vectors, graph, dbClient, logger)
	engine := debate.NewEngine(dbClient, dbClient, assembler, generator, logger)

	return &stack{
		embedder:  embedder,
		completer: completer,
		assembler: assembler,
		pipeline:  pipeline,
		chat:      service.NewChatService(dbClient, assembler, generator, logger),
		uploads:   service.NewUploadService(dbClient, pipeline, cfg.CanTrain, logger),
		debates:   service.NewDebateService(dbClient, engine, logger),
	}, nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(debateCmd)
	rootCmd.AddCommand(statusCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
