package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evorag-ai/evorag/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "evorag",
		Short: "EvoRAG CLI - Ask questions and inspect judge evaluations",
		Long: `EvoRAG CLI talks to a running EvoRAG server.

Environment variables:
  EVORAG_SERVER   Server base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("server", "", "Server base URL (overrides env)")

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.EvalsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
