package service

import (
	"context"
	"errors"
	"testing"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(rewriter *MockRewriter, retriever *MockSearchClient, synthesizer *MockSynthesizer, dispatcher *MockDispatcher) *Pipeline {
	return NewPipeline(rewriter, retriever, synthesizer, dispatcher, 7)
}

func TestPipeline_Ask(t *testing.T) {
	chunks := financeChunks()

	rewriter := new(MockRewriter)
	rewriter.On("Rewrite", mock.Anything, "What are the main components of the Finance Act?").
		Return("Finance Act sections schedules provisions tax amendments")

	// Retrieval must run against the rewritten query, never the raw one.
	retriever := new(MockSearchClient)
	retriever.On("Search", mock.Anything, "Finance Act sections schedules provisions tax amendments", 7).
		Return(chunks, nil)

	synthesizer := new(MockSynthesizer)
	synthesizer.On("Synthesize", mock.Anything, "Finance Act sections schedules provisions tax amendments", chunks).
		Return("The Act comprises sections, schedules and provisions.", []string{"finance_act.pdf"}, nil)

	var dispatched *domain.Interaction
	dispatcher := new(MockDispatcher)
	dispatcher.On("Enqueue", mock.Anything, mock.AnythingOfType("*domain.Interaction")).
		Run(func(args mock.Arguments) {
			dispatched = args.Get(1).(*domain.Interaction)
		}).Return(nil)

	p := newTestPipeline(rewriter, retriever, synthesizer, dispatcher)
	result, err := p.Ask(context.Background(), "What are the main components of the Finance Act?")

	require.NoError(t, err)
	assert.Equal(t, "The Act comprises sections, schedules and provisions.", result.Answer)
	assert.Equal(t, []string{"finance_act.pdf"}, result.CitedDocs)
	assert.Equal(t, []string{"finance_act.pdf"}, result.ReferencedDocs)
	assert.NotEmpty(t, result.InteractionID)

	require.NotNil(t, dispatched)
	assert.True(t, dispatched.Complete())
	assert.Equal(t, result.InteractionID, dispatched.ID)
	assert.Equal(t, "What are the main components of the Finance Act?", dispatched.RawQuery)
	assert.Equal(t, chunks, dispatched.RetrievedChunks)

	retriever.AssertNotCalled(t, "Search", mock.Anything, "What are the main components of the Finance Act?", mock.Anything)
	mock.AssertExpectationsForObjects(t, rewriter, retriever, synthesizer, dispatcher)
}

func TestPipeline_Ask_EmptyQuery(t *testing.T) {
	p := newTestPipeline(new(MockRewriter), new(MockSearchClient), new(MockSynthesizer), new(MockDispatcher))
	_, err := p.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestPipeline_Ask_RetrievalFailure_NoDispatch(t *testing.T) {
	rewriter := new(MockRewriter)
	rewriter.On("Rewrite", mock.Anything, "q").Return("q rewritten")

	retriever := new(MockSearchClient)
	retriever.On("Search", mock.Anything, "q rewritten", 7).
		Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailure, "vector search failed", errors.New("down")))

	dispatcher := new(MockDispatcher)

	p := newTestPipeline(rewriter, retriever, new(MockSynthesizer), dispatcher)
	_, err := p.Ask(context.Background(), "q")

	require.Error(t, err)
	dispatcher.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestPipeline_Ask_SynthesisFailure_NoDispatch(t *testing.T) {
	rewriter := new(MockRewriter)
	rewriter.On("Rewrite", mock.Anything, "q").Return("q")

	retriever := new(MockSearchClient)
	retriever.On("Search", mock.Anything, "q", 7).Return(financeChunks(), nil)

	synthesizer := new(MockSynthesizer)
	synthesizer.On("Synthesize", mock.Anything, "q", mock.Anything).
		Return("", nil, domain.ErrGenerationFailed)

	dispatcher := new(MockDispatcher)

	p := newTestPipeline(rewriter, retriever, synthesizer, dispatcher)
	_, err := p.Ask(context.Background(), "q")

	require.Error(t, err)
	// An aborted pipeline must never enqueue a partial interaction.
	dispatcher.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestPipeline_Ask_DispatchFailure_DoesNotFailResponse(t *testing.T) {
	rewriter := new(MockRewriter)
	rewriter.On("Rewrite", mock.Anything, "q").Return("q")

	retriever := new(MockSearchClient)
	retriever.On("Search", mock.Anything, "q", 7).Return(financeChunks(), nil)

	synthesizer := new(MockSynthesizer)
	synthesizer.On("Synthesize", mock.Anything, "q", mock.Anything).Return("an answer", nil, nil)

	dispatcher := new(MockDispatcher)
	dispatcher.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue unavailable"))

	p := newTestPipeline(rewriter, retriever, synthesizer, dispatcher)
	result, err := p.Ask(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "an answer", result.Answer)
}

func TestPipeline_Ask_EmptyRetrieval_InsufficiencyAnswer(t *testing.T) {
	rewriter := new(MockRewriter)
	rewriter.On("Rewrite", mock.Anything, "q").Return("q")

	retriever := new(MockSearchClient)
	retriever.On("Search", mock.Anything, "q", 7).Return([]domain.RetrievedChunk{}, nil)

	gen := new(MockGenerator)
	synthesizer := NewAnswerSynthesizer(gen, loadPrompts(t))

	dispatcher := new(MockDispatcher)
	dispatcher.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

	p := NewPipeline(rewriter, retriever, synthesizer, dispatcher, 7)
	result, err := p.Ask(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, InsufficientContextAnswer, result.Answer)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}
