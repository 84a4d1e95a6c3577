package domain

import (
	"time"
)

// Issue tags observed in judge output. The full vocabulary is
// configuration; these are the defaults the judge prompt enumerates.
const (
	IssueNone = "NONE"
)

// DefaultQueryIssueTags is the default closed tag set for query rewrites.
var DefaultQueryIssueTags = []string{IssueNone, "LOST_INTENT", "TOO_BROAD", "HALLUCINATED_DETAILS"}

// DefaultAnswerIssueTags is the default closed tag set for answers.
var DefaultAnswerIssueTags = []string{IssueNone, "HALLUCINATION", "INCOMPLETE", "OUT_OF_CONTEXT"}

// QueryEvaluation scores the rewrite stage of one interaction.
type QueryEvaluation struct {
	Reasoning       string `json:"reasoning"`
	Score           int    `json:"score"`
	IdentifiedIssue string `json:"identified_issue"`
}

// AnswerEvaluation scores the final answer against the retrieved context.
type AnswerEvaluation struct {
	Reasoning         string `json:"reasoning"`
	RelevanceScore    int    `json:"relevance_score"`
	CorrectnessScore  int    `json:"correctness_score"`
	CompletenessScore int    `json:"completeness_score"`
	IdentifiedIssue   string `json:"identified_issue"`
}

// EvaluationResult is one judgment, 1:1 with an Interaction via
// InteractionID. Created only by the judge worker, exactly once per
// successfully judged interaction, and never mutated afterwards.
type EvaluationResult struct {
	InteractionID    string           `json:"interaction_id"`
	RawQuery         string           `json:"raw_query,omitempty"`
	RewrittenQuery   string           `json:"rewritten_query,omitempty"`
	Answer           string           `json:"answer,omitempty"`
	QueryEvaluation  QueryEvaluation  `json:"query_evaluation"`
	AnswerEvaluation AnswerEvaluation `json:"answer_evaluation"`
	JudgedAt         time.Time        `json:"timestamp"`
}

// IssueVocabulary is the configured closed tag set per evaluation part.
type IssueVocabulary struct {
	QueryTags  []string
	AnswerTags []string
}

// DefaultIssueVocabulary returns the tag sets the default judge prompt
// instructs the model to choose from.
func DefaultIssueVocabulary() IssueVocabulary {
	return IssueVocabulary{
		QueryTags:  DefaultQueryIssueTags,
		AnswerTags: DefaultAnswerIssueTags,
	}
}

func tagAllowed(tag string, allowed []string) bool {
	for _, t := range allowed {
		if t == tag {
			return true
		}
	}
	return false
}

func scoreInRange(scores ...int) bool {
	for _, s := range scores {
		if s < 1 || s > 5 {
			return false
		}
	}
	return true
}

// Validate checks the result against the schema invariants: all scores in
// [1,5] and issue tags drawn from the configured vocabulary.
func (r *EvaluationResult) Validate(vocab IssueVocabulary) error {
	if r.InteractionID == "" {
		return NewDomainError(ErrCodeValidation, "evaluation result is missing interaction_id")
	}
	if !scoreInRange(r.QueryEvaluation.Score) {
		return ErrScoreOutOfRange
	}
	if !scoreInRange(r.AnswerEvaluation.RelevanceScore, r.AnswerEvaluation.CorrectnessScore, r.AnswerEvaluation.CompletenessScore) {
		return ErrScoreOutOfRange
	}
	if !tagAllowed(r.QueryEvaluation.IdentifiedIssue, vocab.QueryTags) {
		return ErrUnknownIssueTag
	}
	if !tagAllowed(r.AnswerEvaluation.IdentifiedIssue, vocab.AnswerTags) {
		return ErrUnknownIssueTag
	}
	return nil
}
