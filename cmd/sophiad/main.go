// Package main provides the sophia daemon: the CLI pinned to the serve
// command, for container entrypoints.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sophia-labs/sophia/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
