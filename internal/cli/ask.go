package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sophia-labs/sophia/internal/service"
)

var (
	askPersona      string
	askConversation string
	askShowContext  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question and get a cited answer",
	Long: `Ask a question over the trained corpus.

With --persona the answer is scoped to that persona's documents and spoken
in its voice. With --conversation the question continues an existing
conversation instead of starting a new one.

Examples:
  sophia ask "Where did Einstein work in 1905?"
  sophia ask "What is your view on quantum mechanics?" --persona <id>
  sophia ask "And after that?" --conversation <id>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if check := cfg.CanRespond(); !check.OK {
			exitWithError("responding is not configured, missing: %v", check.Missing)
		}

		app, err := buildStack(ctx)
		if err != nil {
			return err
		}

		var personaID *string
		if askPersona != "" {
			personaID = &askPersona
		}

		if askShowContext {
			rc, err := app.assembler.Assemble(ctx, args[0], personaID)
			if err != nil {
				return fmt.Errorf("assemble context: %w", err)
			}
			fmt.Println(rc.Text)
			fmt.Println()
		}

		result, err := app.chat.SendMessage(ctx, service.ChatInput{
			ConversationID: askConversation,
			PersonaID:      personaID,
			Content:        args[0],
		})
		if err != nil {
			return fmt.Errorf("ask: %w", err)
		}

		fmt.Println(result.Reply.Content)
		fmt.Printf("\n(conversation %s)\n", result.ConversationID)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askPersona, "persona", "p", "", "answer as this persona")
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "continue an existing conversation")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the retrieved context before the answer")
}
