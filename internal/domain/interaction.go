package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RetrievedChunk is one scored document chunk returned by retrieval.
// Order within an Interaction is the retrieval rank and is significant.
type RetrievedChunk struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Text    string  `json:"text"`
	Score   float32 `json:"score"`
}

// Interaction is one user query/answer exchange plus its retrieval
// context. It is immutable once the synchronous pipeline completes and is
// read-only input to evaluation.
type Interaction struct {
	ID              string           `json:"interaction_id"`
	RawQuery        string           `json:"raw_query"`
	RewrittenQuery  string           `json:"rewritten_query"`
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	Answer          string           `json:"answer"`
	CitedDocs       []string         `json:"cited_docs,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// NewInteraction assembles a completed interaction with a fresh id and
// creation timestamp.
func NewInteraction(rawQuery, rewrittenQuery string, chunks []RetrievedChunk, answer string, citedDocs []string) *Interaction {
	return &Interaction{
		ID:              uuid.NewString(),
		RawQuery:        rawQuery,
		RewrittenQuery:  rewrittenQuery,
		RetrievedChunks: chunks,
		Answer:          answer,
		CitedDocs:       citedDocs,
		CreatedAt:       time.Now().UTC(),
	}
}

// Complete reports whether the interaction may be dispatched for
// evaluation. Partial interactions (aborted pipelines) must never be
// enqueued.
func (i *Interaction) Complete() bool {
	return i.ID != "" && strings.TrimSpace(i.Answer) != ""
}

// ContextText renders the retrieved chunks into the source-tagged block
// the synthesis and judge prompts consume.
func (i *Interaction) ContextText() string {
	return ChunkContext(i.RetrievedChunks)
}

// ChunkContext renders scored chunks into the prompt context block,
// preserving retrieval rank order.
func ChunkContext(chunks []RetrievedChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString("[Source: ")
		b.WriteString(c.Source)
		b.WriteString("]\n")
		b.WriteString(c.Text)
		b.WriteString("\n---\n")
	}
	return b.String()
}

// Sources returns the distinct source documents of the chunks, in first
// occurrence order.
func Sources(chunks []RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var out []string
	for _, c := range chunks {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		out = append(out, c.Source)
	}
	return out
}
