package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sophia-labs/sophia/internal/models"
)

var (
	trainPersona string
	trainURL     string
	trainNoTUI   bool
)

var trainCmd = &cobra.Command{
	Use:   "train <file.pdf>",
	Short: "Train the knowledge base from a PDF document",
	Long: `Upload a PDF and run the training pipeline: extract page text,
chunk it, embed the chunks, mine knowledge graph facts, and persist both.

With --persona the document is attributed to that persona and only
retrieved when answering as it. Re-training the same upload overwrites its
chunks instead of duplicating them.

Examples:
  sophia train einstein-biography.pdf --persona <id>
  sophia train paper.pdf --url https://archive.example.com/paper.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		document, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		app, err := buildStack(ctx)
		if err != nil {
			return err
		}

		var personaID *string
		if trainPersona != "" {
			personaID = &trainPersona
		}
		url := trainURL
		if url == "" {
			url = "file://" + filepath.Base(path)
		}

		result, err := app.uploads.Ingest(ctx, filepath.Base(path), url, personaID, document)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		if result.Status == models.TrainingSkipped {
			exitWithError("training skipped, missing configuration: %v", result.MissingConfig)
		}

		if trainNoTUI {
			if err := result.Job.Wait(ctx); err != nil {
				return fmt.Errorf("training: %w", err)
			}
			status := result.Job.Status()
			fmt.Printf("Trained %s: %d chunks, %d facts.\n", path, status.Chunks, status.Facts)
			return nil
		}

		return runTrainingProgress(result.Job)
	},
}

func init() {
	trainCmd.Flags().StringVarP(&trainPersona, "persona", "p", "", "attribute the document to this persona")
	trainCmd.Flags().StringVar(&trainURL, "url", "", "source URL recorded for citations")
	trainCmd.Flags().BoolVar(&trainNoTUI, "no-tui", false, "plain output without the progress display")
}
