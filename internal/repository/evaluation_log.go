package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EvaluationLogRepository is the Postgres-backed evaluation log store.
// interaction_id is the natural key; a second append for the same
// interaction is a no-op (first-write-wins), which is the queue's
// redelivery-safety mechanism.
type EvaluationLogRepository struct {
	db dbtx
}

func NewEvaluationLogRepository(pool *pgxpool.Pool) *EvaluationLogRepository {
	return &EvaluationLogRepository{db: pool}
}

type evaluationPayload struct {
	QueryEvaluation  domain.QueryEvaluation  `json:"query_evaluation"`
	AnswerEvaluation domain.AnswerEvaluation `json:"answer_evaluation"`
}

// Append stores one judgment. Appending a result for an interaction
// that already has one leaves the stored record untouched.
func (r *EvaluationLogRepository) Append(ctx context.Context, result *domain.EvaluationResult) error {
	evaluation, err := json.Marshal(evaluationPayload{
		QueryEvaluation:  result.QueryEvaluation,
		AnswerEvaluation: result.AnswerEvaluation,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO evaluation_results (interaction_id, raw_query, rewritten_query, answer, evaluation, judged_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (interaction_id) DO NOTHING`,
		result.InteractionID,
		nullIfEmpty(result.RawQuery),
		nullIfEmpty(result.RewrittenQuery),
		nullIfEmpty(result.Answer),
		evaluation,
		result.JudgedAt,
	)
	return err
}

// Iterate returns up to limit stored judgments in append order.
// Re-reading with no interleaved writes reproduces the same sequence.
func (r *EvaluationLogRepository) Iterate(ctx context.Context, limit int) ([]*domain.EvaluationResult, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.db.Query(ctx,
		`SELECT interaction_id, raw_query, rewritten_query, answer, evaluation, judged_at
		 FROM evaluation_results
		 ORDER BY seq ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.EvaluationResult
	for rows.Next() {
		result, err := scanEvaluationResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// GetByInteractionID fetches one judgment.
func (r *EvaluationLogRepository) GetByInteractionID(ctx context.Context, interactionID string) (*domain.EvaluationResult, error) {
	row := r.db.QueryRow(ctx,
		`SELECT interaction_id, raw_query, rewritten_query, answer, evaluation, judged_at
		 FROM evaluation_results WHERE interaction_id = $1`,
		interactionID,
	)
	result, err := scanEvaluationResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEvaluationNotFound
		}
		return nil, err
	}
	return result, nil
}

func scanEvaluationResult(row rowScanner) (*domain.EvaluationResult, error) {
	var result domain.EvaluationResult
	var rawQuery, rewrittenQuery, answer pgtype.Text
	var evaluation []byte

	if err := row.Scan(&result.InteractionID, &rawQuery, &rewrittenQuery, &answer, &evaluation, &result.JudgedAt); err != nil {
		return nil, err
	}

	if rawQuery.Valid {
		result.RawQuery = rawQuery.String
	}
	if rewrittenQuery.Valid {
		result.RewrittenQuery = rewrittenQuery.String
	}
	if answer.Valid {
		result.Answer = answer.String
	}

	var payload evaluationPayload
	if err := json.Unmarshal(evaluation, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation for interaction %s: %w", result.InteractionID, err)
	}
	result.QueryEvaluation = payload.QueryEvaluation
	result.AnswerEvaluation = payload.AnswerEvaluation

	return &result, nil
}
