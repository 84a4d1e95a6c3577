package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evorag-ai/evorag/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evoragd",
		Short: "EvoRAG daemon",
		Long:  "EvoRAG daemon for serving the question-answering API and running judge workers",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.WorkCmd())
	rootCmd.AddCommand(admin.ArchiveCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
