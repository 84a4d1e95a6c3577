package service

import (
	"context"
	"log"
	"strings"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/evorag-ai/evorag/internal/telemetry"
)

// Rewriter rewrites a raw query for retrieval. Implementations fail
// open and always return a usable query.
type Rewriter interface {
	Rewrite(ctx context.Context, rawQuery string) string
}

// Synthesizer produces the final answer and cited docs from chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, chunks []domain.RetrievedChunk) (string, []string, error)
}

// SearchClient is the retrieval capability seen by the pipeline.
type SearchClient interface {
	Search(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error)
}

// Dispatcher hands a completed interaction to the evaluation queue.
type Dispatcher interface {
	Enqueue(ctx context.Context, interaction *domain.Interaction) error
}

// AskResult is the synchronous response to one user query.
type AskResult struct {
	InteractionID  string
	Answer         string
	CitedDocs      []string
	ReferencedDocs []string
}

// Pipeline orchestrates rewrite, retrieval, and synthesis for one user
// query, then dispatches the completed interaction for asynchronous
// evaluation. The caller never waits on judging.
type Pipeline struct {
	rewriter    Rewriter
	retriever   SearchClient
	synthesizer Synthesizer
	dispatcher  Dispatcher
	topK        int
}

func NewPipeline(rewriter Rewriter, retriever SearchClient, synthesizer Synthesizer, dispatcher Dispatcher, topK int) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Pipeline{
		rewriter:    rewriter,
		retriever:   retriever,
		synthesizer: synthesizer,
		dispatcher:  dispatcher,
		topK:        topK,
	}
}

// Ask answers rawQuery. Retrieval always runs against the rewritten
// query, never the raw one; the rewrite exists to improve retrieval
// recall and precision. Failures in rewrite/retrieve/synthesize surface
// to the caller; a dispatch failure is logged and never fails the
// response.
func (p *Pipeline) Ask(ctx context.Context, rawQuery string) (*AskResult, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Ask", telemetry.SpanAttributes{Operation: "ask"})
	defer span.End()

	rewritten := p.rewriter.Rewrite(ctx, rawQuery)

	chunks, err := p.retriever.Search(ctx, rewritten, p.topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answer, cited, err := p.synthesizer.Synthesize(ctx, rewritten, chunks)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	interaction := domain.NewInteraction(rawQuery, rewritten, chunks, answer, cited)

	// Dispatch only a complete interaction; evaluation is best-effort,
	// the answer is not.
	if interaction.Complete() {
		if err := p.dispatcher.Enqueue(ctx, interaction); err != nil {
			log.Printf("evaluation dispatch failed for interaction %s (answer unaffected): %v", interaction.ID, err)
			telemetry.CaptureError(ctx, domain.NewDomainErrorWithCause(domain.ErrCodeDispatch, "evaluation dispatch failed", err))
		}
	}

	return &AskResult{
		InteractionID:  interaction.ID,
		Answer:         answer,
		CitedDocs:      cited,
		ReferencedDocs: domain.Sources(chunks),
	}, nil
}
