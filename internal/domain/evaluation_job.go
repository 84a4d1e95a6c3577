package domain

import "time"

// EvaluationJobStatus represents the lifecycle state of a queued
// evaluation task.
type EvaluationJobStatus string

const (
	EvaluationJobStatusPending    EvaluationJobStatus = "pending"
	EvaluationJobStatusProcessing EvaluationJobStatus = "processing"
	EvaluationJobStatusCompleted  EvaluationJobStatus = "completed"
	// EvaluationJobStatusDead is the dead-letter state: retries
	// exhausted, awaiting manual inspection.
	EvaluationJobStatusDead EvaluationJobStatus = "dead"
)

// EvaluationJob is one queued judging task. The payload is the complete
// Interaction; the queue delivers at-least-once and the judge worker
// tolerates redelivery.
type EvaluationJob struct {
	ID            string
	InteractionID string
	Interaction   *Interaction
	Status        EvaluationJobStatus
	Attempts      int
	Error         string
	CreatedAt     time.Time
	NextAttemptAt time.Time
	ClaimedAt     *time.Time
	ProcessedAt   *time.Time
}
