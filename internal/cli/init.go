package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database schema",
	Long: `Initialize the SurrealDB schema: tables, indexes, and the chunk
HNSW vector index.

The vector index dimension is taken from SOPHIA_EMBED_DIMENSION and must
match the embedding model in use. Changing the embedding model later
requires re-initializing and re-training.

When SOPHIA_DB_PASS is not set, the password is prompted for
interactively.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dbClient.InitSchema(cmd.Context(), cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		fmt.Printf("Schema initialized (embedding dimension %d).\n", cfg.EmbedDimension)
		return nil
	},
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("SOPHIA_DB_PASS not set and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}
