package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/evorag-ai/evorag/internal/genai"
	"github.com/evorag-ai/evorag/internal/prompts"
	"github.com/evorag-ai/evorag/internal/telemetry"
)

const (
	// DefaultMaxAttempts is the retry ceiling before a job is dead-lettered
	DefaultMaxAttempts = 3
	// DefaultBackoffBase seeds the exponential retry backoff
	DefaultBackoffBase = 30 * time.Second
	// maxBackoff bounds the retry delay however high attempts climb
	maxBackoff = 15 * time.Minute
	// DefaultBatchSize caps the jobs claimed per polling cycle
	DefaultBatchSize = 20
)

// EvaluationQueue defines the queue operations the judge consumes
type EvaluationQueue interface {
	// ClaimDue retrieves and claims runnable evaluation jobs
	ClaimDue(ctx context.Context, limit int, visibilityWindow time.Duration) ([]*domain.EvaluationJob, error)

	// MarkCompleted finishes a judged job
	MarkCompleted(ctx context.Context, id string) error

	// Reschedule returns a failed job to the queue with a backoff deadline
	Reschedule(ctx context.Context, id string, attempts int, errMsg string, nextAttemptAt time.Time) error

	// MarkDead moves a job to the dead-letter state
	MarkDead(ctx context.Context, id string, attempts int, errMsg string) error
}

// EvaluationLog is the idempotent sink for judgments.
type EvaluationLog interface {
	Append(ctx context.Context, result *domain.EvaluationResult) error
}

// JudgeGenerator produces JSON-constrained judge completions.
type JudgeGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, profile genai.Profile) (string, error)
}

// JudgeConfig tunes the judge worker's retry and throughput behavior.
type JudgeConfig struct {
	BatchSize        int
	MaxAttempts      int
	BackoffBase      time.Duration
	VisibilityWindow time.Duration
	RatePerSecond    float64
	Vocabulary       domain.IssueVocabulary
}

func (c *JudgeConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.VisibilityWindow <= 0 {
		c.VisibilityWindow = 5 * time.Minute
	}
	if len(c.Vocabulary.QueryTags) == 0 || len(c.Vocabulary.AnswerTags) == 0 {
		c.Vocabulary = domain.DefaultIssueVocabulary()
	}
}

// JudgeWorker drains the evaluation queue: it renders the judge prompt
// for each claimed interaction, parses the model's structured verdict,
// and records it in the evaluation log. The queue delivers
// at-least-once; the log's first-write-wins append makes redelivery
// harmless.
type JudgeWorker struct {
	queue     EvaluationQueue
	evalLog   EvaluationLog
	generator JudgeGenerator
	prompts   *prompts.Store
	limiter   *rate.Limiter
	cfg       JudgeConfig
}

// NewJudgeWorker creates a new JudgeWorker instance
func NewJudgeWorker(queue EvaluationQueue, evalLog EvaluationLog, generator JudgeGenerator, promptStore *prompts.Store, cfg JudgeConfig) *JudgeWorker {
	cfg.applyDefaults()

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &JudgeWorker{
		queue:     queue,
		evalLog:   evalLog,
		generator: generator,
		prompts:   promptStore,
		limiter:   limiter,
		cfg:       cfg,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *JudgeWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.queue.ClaimDue(ctx, w.cfg.BatchSize, w.cfg.VisibilityWindow)
	if err != nil {
		return fmt.Errorf("failed to claim evaluation jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("judging %d claimed evaluation jobs", len(jobs))

	for _, job := range jobs {
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("error processing evaluation job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *JudgeWorker) processJob(ctx context.Context, job *domain.EvaluationJob) error {
	ctx, span := telemetry.StartSpan(ctx, "JudgeWorker.processJob", telemetry.SpanAttributes{
		InteractionID: job.InteractionID,
		Operation:     "judge",
	})
	defer span.End()

	result, err := w.judge(ctx, job.Interaction)
	if err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	// Append is first-write-wins on interaction_id, so a redelivered job
	// whose previous run crashed after appending records nothing new.
	if err := w.evalLog.Append(ctx, result); err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, fmt.Errorf("failed to record evaluation: %w", err))
	}

	if err := w.queue.MarkCompleted(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	log.Printf("evaluation job %s completed for interaction %s", job.ID, job.InteractionID)
	return nil
}

// judgeVerdict is the JSON shape the judge prompt instructs the model
// to emit.
type judgeVerdict struct {
	QueryEvaluation  *domain.QueryEvaluation  `json:"query_evaluation"`
	AnswerEvaluation *domain.AnswerEvaluation `json:"answer_evaluation"`
}

func (w *JudgeWorker) judge(ctx context.Context, interaction *domain.Interaction) (*domain.EvaluationResult, error) {
	if interaction == nil {
		return nil, domain.ErrIncompleteInteraction
	}

	prompt := w.prompts.Render(prompts.NameJudge, map[string]string{
		"original_query":    interaction.RawQuery,
		"rewritten_query":   interaction.RewrittenQuery,
		"context":           interaction.ContextText(),
		"answer":            interaction.Answer,
		"query_issue_tags":  strings.Join(w.cfg.Vocabulary.QueryTags, ", "),
		"answer_issue_tags": strings.Join(w.cfg.Vocabulary.AnswerTags, ", "),
	})

	raw, err := w.generator.GenerateJSON(ctx, prompt, genai.ProfileJudge)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "judge generation failed", err)
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeJudgeParse, "judge output is not valid JSON", err)
	}
	if verdict.QueryEvaluation == nil || verdict.AnswerEvaluation == nil {
		return nil, domain.ErrJudgeParseFailed
	}

	result := &domain.EvaluationResult{
		InteractionID:    interaction.ID,
		RawQuery:         interaction.RawQuery,
		RewrittenQuery:   interaction.RewrittenQuery,
		Answer:           interaction.Answer,
		QueryEvaluation:  *verdict.QueryEvaluation,
		AnswerEvaluation: *verdict.AnswerEvaluation,
		JudgedAt:         time.Now().UTC(),
	}

	if err := result.Validate(w.cfg.Vocabulary); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeJudgeParse, "judge output violates the evaluation schema", err)
	}

	return result, nil
}

// handleJobFailure reschedules a failed job with exponential backoff, or
// dead-letters it once the attempt ceiling is reached.
func (w *JudgeWorker) handleJobFailure(ctx context.Context, job *domain.EvaluationJob, jobErr error) error {
	attempts := job.Attempts + 1

	if attempts >= w.cfg.MaxAttempts {
		log.Printf("evaluation job %s exhausted %d attempts, moving to dead letter", job.ID, attempts)
		errMsg := fmt.Sprintf("attempts exhausted: %v", jobErr)
		if err := w.queue.MarkDead(ctx, job.ID, attempts, errMsg); err != nil {
			return fmt.Errorf("failed to dead-letter job: %w", err)
		}
		telemetry.CaptureError(ctx, fmt.Errorf("evaluation job %s dead-lettered for interaction %s: %w", job.ID, job.InteractionID, jobErr))
		return nil
	}

	delay := w.cfg.BackoffBase * (1 << job.Attempts)
	if delay > maxBackoff {
		delay = maxBackoff
	}
	nextAttemptAt := time.Now().UTC().Add(delay)
	log.Printf("evaluation job %s will be retried in %v (attempt %d/%d)", job.ID, delay, attempts, w.cfg.MaxAttempts)

	errMsg := fmt.Sprintf("attempt %d: %v", attempts, jobErr)
	if err := w.queue.Reschedule(ctx, job.ID, attempts, errMsg, nextAttemptAt); err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}
	return nil
}
