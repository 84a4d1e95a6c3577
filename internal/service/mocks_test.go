package service

import (
	"context"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/evorag-ai/evorag/internal/genai"
	"github.com/stretchr/testify/mock"
)

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, profile genai.Profile) (string, error) {
	args := m.Called(ctx, prompt, profile)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) GenerateJSON(ctx context.Context, prompt string, profile genai.Profile) (string, error) {
	args := m.Called(ctx, prompt, profile)
	return args.String(0), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockChunkSearchRepository is a mock implementation of ChunkSearchRepository
type MockChunkSearchRepository struct {
	mock.Mock
}

func (m *MockChunkSearchRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

// MockSearchClient is a mock implementation of SearchClient
type MockSearchClient struct {
	mock.Mock
}

func (m *MockSearchClient) Search(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Enqueue(ctx context.Context, interaction *domain.Interaction) error {
	args := m.Called(ctx, interaction)
	return args.Error(0)
}

// MockRewriter is a mock implementation of Rewriter
type MockRewriter struct {
	mock.Mock
}

func (m *MockRewriter) Rewrite(ctx context.Context, rawQuery string) string {
	args := m.Called(ctx, rawQuery)
	return args.String(0)
}

// MockSynthesizer is a mock implementation of Synthesizer
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, query string, chunks []domain.RetrievedChunk) (string, []string, error) {
	args := m.Called(ctx, query, chunks)
	var cited []string
	if args.Get(1) != nil {
		cited = args.Get(1).([]string)
	}
	return args.String(0), cited, args.Error(2)
}
