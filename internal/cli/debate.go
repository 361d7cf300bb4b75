package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/service"
)

var (
	debatePersonas []string
	debateTurns    int
	debateSeed     string
)

var debateCmd = &cobra.Command{
	Use:   "debate <topic>",
	Short: "Run a two-persona debate on a topic",
	Long: `Run a debate between two trained personas.

The personas alternate statements in the order given; each statement is
grounded in that persona's trained corpus. The transcript is persisted and
can be resumed by running more turns later.

Examples:
  sophia debate "Is light a wave?" --personas <einstein-id>,<newton-id>
  sophia debate "Free will" --personas <a>,<b> --turns 6 --seed "Keep it civil."`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(debatePersonas) != 2 {
			exitWithError("exactly two personas are required, got %d", len(debatePersonas))
		}
		if check := cfg.CanRespond(); !check.OK {
			exitWithError("responding is not configured, missing: %v", check.Missing)
		}

		app, err := buildStack(ctx)
		if err != nil {
			return err
		}

		participants := make([]models.DebateParticipant, len(debatePersonas))
		for i, personaID := range debatePersonas {
			participants[i] = models.DebateParticipant{PersonaID: personaID, OrderIndex: i}
		}

		deb, err := app.debates.Create(ctx, service.DebateInput{
			Topic:          args[0],
			Participants:   participants,
			InitialMessage: debateSeed,
		})
		if err != nil {
			return fmt.Errorf("create debate: %w", err)
		}
		debateID, err := models.RecordIDString(deb.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Debate %s: %s\n\n", debateID, deb.Topic)

		for turn := 0; turn < debateTurns; turn++ {
			message, err := app.debates.NextTurn(ctx, debateID)
			if err != nil {
				return fmt.Errorf("turn %d: %w", turn+1, err)
			}

			speaker := "?"
			if message.AuthorPersona != nil {
				persona, err := dbClient.GetPersona(ctx, *message.AuthorPersona)
				if err == nil && persona != nil {
					speaker = persona.Name
				}
			}
			fmt.Printf("--- %s ---\n%s\n\n", speaker, message.Content)
		}

		fmt.Printf("(debate %s, resume with more turns any time)\n", debateID)
		return nil
	},
}

func init() {
	debateCmd.Flags().StringSliceVar(&debatePersonas, "personas", nil, "two persona ids, first speaks first")
	debateCmd.Flags().IntVarP(&debateTurns, "turns", "n", 4, "number of statements to generate")
	debateCmd.Flags().StringVar(&debateSeed, "seed", "", "optional framing message before the first statement")
}
