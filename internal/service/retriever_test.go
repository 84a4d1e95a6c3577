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

func TestRetriever_Search(t *testing.T) {
	embedding := []float32{0.1, 0.2, 0.3}
	chunks := financeChunks()

	emb := new(MockEmbeddingClient)
	emb.On("EmbedQuery", mock.Anything, "tax amendments").Return(embedding, nil)

	repo := new(MockChunkSearchRepository)
	repo.On("SearchByEmbedding", mock.Anything, embedding, 5).Return(chunks, nil)

	r := NewRetriever(emb, repo)
	got, err := r.Search(context.Background(), "tax amendments", 5)

	require.NoError(t, err)
	assert.Equal(t, chunks, got)
	emb.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestRetriever_Search_DefaultTopK(t *testing.T) {
	emb := new(MockEmbeddingClient)
	emb.On("EmbedQuery", mock.Anything, "q").Return([]float32{0.1}, nil)

	repo := new(MockChunkSearchRepository)
	repo.On("SearchByEmbedding", mock.Anything, mock.Anything, DefaultTopK).Return([]domain.RetrievedChunk{}, nil)

	r := NewRetriever(emb, repo)
	_, err := r.Search(context.Background(), "q", 0)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRetriever_Search_EmbeddingFailure(t *testing.T) {
	emb := new(MockEmbeddingClient)
	emb.On("EmbedQuery", mock.Anything, "q").Return(nil, errors.New("embedding api down"))

	r := NewRetriever(emb, new(MockChunkSearchRepository))
	_, err := r.Search(context.Background(), "q", 3)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeRetrievalFailure, domainErr.Code)
}

func TestRetriever_Search_RepositoryFailure(t *testing.T) {
	emb := new(MockEmbeddingClient)
	emb.On("EmbedQuery", mock.Anything, "q").Return([]float32{0.1}, nil)

	repo := new(MockChunkSearchRepository)
	repo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	r := NewRetriever(emb, repo)
	_, err := r.Search(context.Background(), "q", 3)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeRetrievalFailure, domainErr.Code)
}
