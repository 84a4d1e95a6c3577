package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/evorag-ai/evorag/internal/genai"
	"github.com/evorag-ai/evorag/internal/prompts"
)

// Generator is the text generation capability, profiled by model.
type Generator interface {
	Generate(ctx context.Context, prompt string, profile genai.Profile) (string, error)
	GenerateJSON(ctx context.Context, prompt string, profile genai.Profile) (string, error)
}

// QueryTransformer rewrites a raw user question into a
// retrieval-optimized query using the rewrite prompt.
type QueryTransformer struct {
	gen     Generator
	prompts *prompts.Store
}

func NewQueryTransformer(gen Generator, store *prompts.Store) *QueryTransformer {
	return &QueryTransformer{gen: gen, prompts: store}
}

type rewriteOutput struct {
	RewrittenQuery string `json:"rewritten_query"`
}

// Rewrite returns a retrieval-optimized form of rawQuery. It fails open:
// any generation or parse failure falls back to the raw query, so
// retrieval quality degrades gracefully instead of failing the request.
func (t *QueryTransformer) Rewrite(ctx context.Context, rawQuery string) string {
	prompt := t.prompts.Render(prompts.NameRewrite, map[string]string{"query": rawQuery})

	out, err := t.gen.GenerateJSON(ctx, prompt, genai.ProfileFast)
	if err != nil {
		log.Printf("query rewrite failed, falling back to original query: %v", err)
		return rawQuery
	}

	var parsed rewriteOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		log.Printf("query rewrite returned malformed JSON, falling back to original query: %v", err)
		return rawQuery
	}

	rewritten := strings.TrimSpace(parsed.RewrittenQuery)
	if rewritten == "" {
		return rawQuery
	}
	return rewritten
}
