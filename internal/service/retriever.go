package service

import (
	"context"

	"github.com/evorag-ai/evorag/internal/domain"
)

// DefaultTopK is the retrieval depth when the caller does not set one.
const DefaultTopK = 7

// EmbeddingClient generates query embeddings.
type EmbeddingClient interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearchRepository runs vector similarity search over ingested
// document chunks.
type ChunkSearchRepository interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.RetrievedChunk, error)
}

// Retriever is the retrieval capability: embed the query, return the
// top-k chunks ordered by relevance.
type Retriever struct {
	embeddings EmbeddingClient
	repo       ChunkSearchRepository
}

func NewRetriever(embeddings EmbeddingClient, repo ChunkSearchRepository) *Retriever {
	return &Retriever{embeddings: embeddings, repo: repo}
}

// Search returns up to k scored chunks for query, ordered by retrieval
// rank. Failures surface as RETRIEVAL_FAILURE.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	embedding, err := r.embeddings.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailure, "failed to embed query", err)
	}

	chunks, err := r.repo.SearchByEmbedding(ctx, embedding, k)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailure, "vector search failed", err)
	}
	return chunks, nil
}
