package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEvaluationJobNotFound = errors.New("evaluation job not found")

// EvaluationJobRepository is the durable task queue feeding the judge
// worker. Delivery is at-least-once: claims are leased, and a lease that
// outlives the visibility window becomes claimable again.
type EvaluationJobRepository struct {
	db dbtx
}

func NewEvaluationJobRepository(pool *pgxpool.Pool) *EvaluationJobRepository {
	return &EvaluationJobRepository{db: pool}
}

func NewEvaluationJobRepositoryWithTx(tx pgx.Tx) *EvaluationJobRepository {
	return &EvaluationJobRepository{db: tx}
}

// Create enqueues one evaluation task carrying the full interaction.
func (r *EvaluationJobRepository) Create(ctx context.Context, job *domain.EvaluationJob) error {
	payload, err := json.Marshal(job.Interaction)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction payload: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO evaluation_jobs (id, interaction_id, payload, status, attempts, error, created_at, next_attempt_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.InteractionID, payload, job.Status, job.Attempts, nullIfEmpty(job.Error), job.CreatedAt, job.NextAttemptAt,
	)
	return err
}

// ClaimDue atomically claims up to limit runnable jobs: pending jobs
// whose next_attempt_at has passed, plus processing jobs whose claim is
// older than the visibility window (a crashed worker's lease).
func (r *EvaluationJobRepository) ClaimDue(ctx context.Context, limit int, visibilityWindow time.Duration) ([]*domain.EvaluationJob, error) {
	if limit <= 0 {
		limit = 20
	}

	now := time.Now().UTC()
	staleBefore := now.Add(-visibilityWindow)

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM evaluation_jobs
			 WHERE (status = $1 AND next_attempt_at <= $2)
			    OR (status = $3 AND claimed_at < $4)
			 ORDER BY next_attempt_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $5
		 )
		 UPDATE evaluation_jobs
		 SET status = $3,
		     claimed_at = $2
		 FROM cte
		 WHERE evaluation_jobs.id = cte.id
		 RETURNING evaluation_jobs.id, evaluation_jobs.interaction_id, evaluation_jobs.payload,
		           evaluation_jobs.status, evaluation_jobs.attempts, evaluation_jobs.error,
		           evaluation_jobs.created_at, evaluation_jobs.next_attempt_at,
		           evaluation_jobs.claimed_at, evaluation_jobs.processed_at`,
		domain.EvaluationJobStatusPending, now, domain.EvaluationJobStatusProcessing, staleBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.EvaluationJob
	for rows.Next() {
		job, err := scanEvaluationJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkCompleted finishes a judged task.
func (r *EvaluationJobRepository) MarkCompleted(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE evaluation_jobs
		 SET status = $1, error = NULL, processed_at = $2
		 WHERE id = $3`,
		domain.EvaluationJobStatusCompleted, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEvaluationJobNotFound
	}
	return nil
}

// Reschedule returns a failed task to the queue with its attempt count
// and backoff deadline advanced.
func (r *EvaluationJobRepository) Reschedule(ctx context.Context, id string, attempts int, errMsg string, nextAttemptAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE evaluation_jobs
		 SET status = $1, attempts = $2, error = $3, next_attempt_at = $4, claimed_at = NULL
		 WHERE id = $5`,
		domain.EvaluationJobStatusPending, attempts, nullIfEmpty(errMsg), nextAttemptAt.UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEvaluationJobNotFound
	}
	return nil
}

// MarkDead moves a task to the dead-letter state after its attempt
// ceiling is exhausted. Dead tasks are kept for manual inspection, never
// silently dropped.
func (r *EvaluationJobRepository) MarkDead(ctx context.Context, id string, attempts int, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE evaluation_jobs
		 SET status = $1, attempts = $2, error = $3, processed_at = $4
		 WHERE id = $5`,
		domain.EvaluationJobStatusDead, attempts, nullIfEmpty(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEvaluationJobNotFound
	}
	return nil
}

// GetByID fetches one job, mainly for operational inspection.
func (r *EvaluationJobRepository) GetByID(ctx context.Context, id string) (*domain.EvaluationJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, interaction_id, payload, status, attempts, error, created_at, next_attempt_at, claimed_at, processed_at
		 FROM evaluation_jobs WHERE id = $1`,
		id,
	)
	job, err := scanEvaluationJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEvaluationJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// CountByStatus reports queue depth per status.
func (r *EvaluationJobRepository) CountByStatus(ctx context.Context, status domain.EvaluationJobStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM evaluation_jobs WHERE status = $1`, status,
	).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvaluationJob(row rowScanner) (*domain.EvaluationJob, error) {
	var job domain.EvaluationJob
	var payload []byte
	var errMsg pgtype.Text
	var claimedAt, processedAt pgtype.Timestamptz

	if err := row.Scan(&job.ID, &job.InteractionID, &payload, &job.Status, &job.Attempts,
		&errMsg, &job.CreatedAt, &job.NextAttemptAt, &claimedAt, &processedAt); err != nil {
		return nil, err
	}

	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		job.ClaimedAt = &t
	}
	if processedAt.Valid {
		t := processedAt.Time
		job.ProcessedAt = &t
	}

	var interaction domain.Interaction
	if err := json.Unmarshal(payload, &interaction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interaction payload for job %s: %w", job.ID, err)
	}
	job.Interaction = &interaction

	return &job, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
