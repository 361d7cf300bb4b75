package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sophia-labs/sophia/internal/client"
	"github.com/sophia-labs/sophia/internal/config"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and corpus status",
	Long: `Show which capabilities the configuration supports and the size of
the trained corpus.

With --server the command queries a running Sophia server over HTTP
instead of the database, and additionally reports its runtime stats.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if statusServer != "" {
			return serverStatus(cmd, statusServer)
		}

		printCheck("training", cfg.CanTrain())
		printCheck("responding", cfg.CanRespond())

		chunks, err := dbClient.CountChunks(ctx, nil)
		if err != nil {
			return fmt.Errorf("count chunks: %w", err)
		}
		nodes, edges, err := dbClient.CountGraph(ctx, nil)
		if err != nil {
			return fmt.Errorf("count graph: %w", err)
		}
		personas, err := dbClient.ListPersonas(ctx)
		if err != nil {
			return fmt.Errorf("list personas: %w", err)
		}

		fmt.Printf("\nPersonas: %d\n", len(personas))
		fmt.Printf("Indexed chunks: %d\n", chunks)
		fmt.Printf("Graph: %d entities, %d relations\n", nodes, edges)
		return nil
	},
}

// serverStatus reports on a running server via its HTTP API.
func serverStatus(cmd *cobra.Command, serverURL string) error {
	ctx := cmd.Context()
	api := client.New(serverURL)

	if err := api.Health(ctx); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	fmt.Println("server       ok")

	status, err := api.ConfigStatus(ctx)
	if err != nil {
		return fmt.Errorf("config status: %w", err)
	}
	for _, name := range []string{"training", "responding"} {
		printCheck(name, config.ServiceCheck{OK: status[name].OK, Missing: status[name].Missing})
	}

	personas, err := api.ListPersonas(ctx)
	if err != nil {
		return fmt.Errorf("list personas: %w", err)
	}
	fmt.Printf("\nPersonas: %d\n", len(personas))

	stats, err := api.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Printf("Uptime: %.0fs\n", stats.UptimeSeconds)
	printOpStats("embeddings", stats.Embedding)
	printOpStats("completions", stats.Completion)
	printOpStats("vector searches", stats.VectorSearch)
	printOpStats("graph searches", stats.GraphSearch)
	return nil
}

func printOpStats(name string, op *client.OperationStats) {
	if op == nil {
		return
	}
	fmt.Printf("  %-16s %d calls, avg %.0fms\n", name, op.Count, op.AvgTimeMs)
}

func printCheck(name string, check config.ServiceCheck) {
	if check.OK {
		fmt.Printf("%-12s ok\n", name)
		return
	}
	fmt.Printf("%-12s missing %s\n", name, strings.Join(check.Missing, ", "))
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "", "query a running server at this URL instead of the database")
}
