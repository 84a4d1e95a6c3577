package jobs

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/evorag-ai/evorag/internal/domain"
)

// EvaluationJobCreator persists new evaluation tasks.
type EvaluationJobCreator interface {
	Create(ctx context.Context, job *domain.EvaluationJob) error
}

// Dispatcher hands completed interactions to the durable evaluation
// queue. It sits on the synchronous request path, so enqueueing must
// stay cheap: one insert, no judging.
type Dispatcher struct {
	repo EvaluationJobCreator
}

func NewDispatcher(repo EvaluationJobCreator) *Dispatcher {
	return &Dispatcher{repo: repo}
}

// Enqueue creates a pending evaluation task carrying the interaction.
// Incomplete interactions are rejected before they can poison the queue.
func (d *Dispatcher) Enqueue(ctx context.Context, interaction *domain.Interaction) error {
	if interaction == nil || !interaction.Complete() {
		return domain.ErrIncompleteInteraction
	}

	now := time.Now().UTC()
	job := &domain.EvaluationJob{
		ID:            uuid.NewString(),
		InteractionID: interaction.ID,
		Interaction:   interaction,
		Status:        domain.EvaluationJobStatusPending,
		CreatedAt:     now,
		NextAttemptAt: now,
	}

	if err := d.repo.Create(ctx, job); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeDispatch, "failed to enqueue evaluation task", err)
	}

	log.Printf("enqueued evaluation job %s for interaction %s", job.ID, interaction.ID)
	return nil
}
