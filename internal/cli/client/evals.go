package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type EvaluationItem struct {
	InteractionID   string `json:"interaction_id"`
	RawQuery        string `json:"raw_query,omitempty"`
	RewrittenQuery  string `json:"rewritten_query,omitempty"`
	Answer          string `json:"answer,omitempty"`
	QueryEvaluation struct {
		Reasoning       string `json:"reasoning"`
		Score           int    `json:"score"`
		IdentifiedIssue string `json:"identified_issue"`
	} `json:"query_evaluation"`
	AnswerEvaluation struct {
		Reasoning         string `json:"reasoning"`
		RelevanceScore    int    `json:"relevance_score"`
		CorrectnessScore  int    `json:"correctness_score"`
		CompletenessScore int    `json:"completeness_score"`
		IdentifiedIssue   string `json:"identified_issue"`
	} `json:"answer_evaluation"`
	Timestamp string `json:"timestamp"`
}

type EvaluationList struct {
	Evaluations []EvaluationItem `json:"evaluations"`
	Count       int              `json:"count"`
}

// EvalsCmd creates the evals command.
func EvalsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "evals [interaction-id]",
		Short: "Inspect judge evaluations",
		Long:  "List stored evaluations, or show the evaluation for one interaction.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("json")
			if len(args) == 1 {
				return runEvalsGet(cmd, args[0], outputJSON)
			}
			return runEvalsList(cmd, limit, outputJSON)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of evaluations to list")
	cmd.Flags().Bool("json", false, "Print the raw JSON response")

	return cmd
}

func runEvalsList(cmd *cobra.Command, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/evaluations?limit=%d", limit))
	if err != nil {
		return err
	}

	var list EvaluationList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse evaluations: %w", err)
	}

	if outputJSON {
		out, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if list.Count == 0 {
		fmt.Println("no evaluations recorded")
		return nil
	}

	for _, item := range list.Evaluations {
		fmt.Printf("%s  query=%d  relevance=%d  correctness=%d  completeness=%d  %s\n",
			item.InteractionID,
			item.QueryEvaluation.Score,
			item.AnswerEvaluation.RelevanceScore,
			item.AnswerEvaluation.CorrectnessScore,
			item.AnswerEvaluation.CompletenessScore,
			item.RawQuery,
		)
	}
	fmt.Printf("\n%d evaluations\n", list.Count)

	return nil
}

func runEvalsGet(cmd *cobra.Command, interactionID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/evaluations/" + interactionID)
	if err != nil {
		return err
	}

	var item EvaluationItem
	if err := json.Unmarshal(resp.Data, &item); err != nil {
		return fmt.Errorf("failed to parse evaluation: %w", err)
	}

	if outputJSON {
		out, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Interaction: %s\n", item.InteractionID)
	fmt.Printf("Query: %s\n", item.RawQuery)
	if item.RewrittenQuery != "" {
		fmt.Printf("Rewritten: %s\n", item.RewrittenQuery)
	}
	fmt.Printf("\nQuery evaluation: score=%d issue=%s\n  %s\n",
		item.QueryEvaluation.Score, item.QueryEvaluation.IdentifiedIssue, item.QueryEvaluation.Reasoning)
	fmt.Printf("\nAnswer evaluation: relevance=%d correctness=%d completeness=%d issue=%s\n  %s\n",
		item.AnswerEvaluation.RelevanceScore,
		item.AnswerEvaluation.CorrectnessScore,
		item.AnswerEvaluation.CompletenessScore,
		item.AnswerEvaluation.IdentifiedIssue,
		item.AnswerEvaluation.Reasoning)
	fmt.Printf("\nJudged at: %s\n", item.Timestamp)

	return nil
}
