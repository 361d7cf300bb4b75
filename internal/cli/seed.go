package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sophia-labs/sophia/internal/models"
)

// seedPersona is one entry in a persona seed file.
type seedPersona struct {
	Name     string `yaml:"name"`
	ShortBio string `yaml:"short_bio"`
}

type seedFile struct {
	Personas []seedPersona `yaml:"personas"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <personas.yaml>",
	Short: "Create personas from a YAML seed file",
	Long: `Create personas from a YAML seed file.

File format:

  personas:
    - name: Albert Einstein
      short_bio: Physicist, author of the theory of relativity.
    - name: Isaac Newton
      short_bio: Mathematician and natural philosopher.

Personas that already exist by name are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}

		var seed seedFile
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}
		if len(seed.Personas) == 0 {
			return fmt.Errorf("seed file contains no personas")
		}

		ctx := cmd.Context()
		existing, err := dbClient.ListPersonas(ctx)
		if err != nil {
			return fmt.Errorf("list personas: %w", err)
		}
		byName := make(map[string]struct{}, len(existing))
		for _, p := range existing {
			byName[p.Name] = struct{}{}
		}

		created, skipped := 0, 0
		for _, entry := range seed.Personas {
			if entry.Name == "" {
				return fmt.Errorf("seed entry without a name")
			}
			if _, ok := byName[entry.Name]; ok {
				skipped++
				continue
			}
			if _, err := dbClient.CreatePersona(ctx, models.PersonaInput{
				Name:     entry.Name,
				ShortBio: entry.ShortBio,
			}); err != nil {
				return fmt.Errorf("create persona %q: %w", entry.Name, err)
			}
			created++
		}

		fmt.Printf("Seeded %d personas (%d already existed).\n", created, skipped)
		return nil
	},
}
