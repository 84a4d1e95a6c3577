package repository

import (
	"context"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository implements vector search over ingested document
// chunks. Ingestion itself happens outside this system; the table is
// the boundary.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

// SearchByEmbedding returns the chunks nearest to embedding by cosine
// distance, ordered by descending relevance score.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 7
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT id, source, content,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM document_chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY score DESC
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := make([]domain.RetrievedChunk, 0, limit)
	for rows.Next() {
		var c domain.RetrievedChunk
		if err := rows.Scan(&c.ChunkID, &c.Source, &c.Text, &c.Score); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Insert stores one chunk with its embedding. Used by ingestion tooling
// and tests; the query path is read-only.
func (r *ChunkRepository) Insert(ctx context.Context, id, source, content string, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO document_chunks (id, source, content, embedding)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
		id, source, content, pgvector.NewVector(embedding),
	)
	return err
}
