// Package main provides the entry point for the sophia CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sophia-labs/sophia/internal/cli"
)

func main() {
	// Best effort; configuration also works from the real environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
