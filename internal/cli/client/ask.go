package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type AskResponse struct {
	InteractionID  string   `json:"interaction_id"`
	Answer         string   `json:"answer"`
	CitedDocs      []string `json:"cited_docs"`
	ReferencedDocs []string `json:"referenced_docs"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("json")
			return runAsk(cmd, strings.Join(args, " "), outputJSON)
		},
	}

	cmd.Flags().Bool("json", false, "Print the raw JSON response")

	return cmd
}

func runAsk(cmd *cobra.Command, query string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/ask", map[string]string{"query": query})
	if err != nil {
		return err
	}

	var result AskResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(result.Answer)
	if len(result.CitedDocs) > 0 {
		fmt.Printf("\nCited: %s\n", strings.Join(result.CitedDocs, ", "))
	}
	if len(result.ReferencedDocs) > 0 {
		fmt.Printf("Referenced: %s\n", strings.Join(result.ReferencedDocs, ", "))
	}
	fmt.Printf("Interaction: %s\n", result.InteractionID)

	return nil
}
