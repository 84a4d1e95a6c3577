package service

import (
	"context"
	"strings"

	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/evorag-ai/evorag/internal/genai"
	"github.com/evorag-ai/evorag/internal/prompts"
)

// InsufficientContextAnswer is returned when retrieval finds nothing the
// answer could be grounded in.
const InsufficientContextAnswer = "I could not find any relevant information in the provided documents to answer your question."

const citationsMarker = "\nCitations:"

// AnswerSynthesizer produces the final answer from retrieved chunks
// using the synthesis prompt.
type AnswerSynthesizer struct {
	gen     Generator
	prompts *prompts.Store
}

func NewAnswerSynthesizer(gen Generator, store *prompts.Store) *AnswerSynthesizer {
	return &AnswerSynthesizer{gen: gen, prompts: store}
}

// Synthesize answers query from chunks. An empty chunk sequence
// short-circuits to the insufficiency answer without a model call.
// Generation failures propagate; the answer is user-facing.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, query string, chunks []domain.RetrievedChunk) (string, []string, error) {
	if len(chunks) == 0 {
		return InsufficientContextAnswer, nil, nil
	}

	prompt := s.prompts.Render(prompts.NameSynthesis, map[string]string{
		"context": domain.ChunkContext(chunks),
		"query":   query,
	})

	out, err := s.gen.Generate(ctx, prompt, genai.ProfileFast)
	if err != nil {
		return "", nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "answer synthesis failed", err)
	}

	answer, cited := splitCitations(out)
	if answer == "" {
		return "", nil, domain.ErrGenerationFailed
	}
	return answer, cited, nil
}

// splitCitations separates a trailing "Citations:" block from the answer
// body. Models following the synthesis prompt list one source per line.
func splitCitations(text string) (string, []string) {
	idx := strings.Index(text, citationsMarker)
	if idx < 0 {
		return strings.TrimSpace(text), nil
	}

	answer := strings.TrimSpace(text[:idx])
	var cited []string
	for _, line := range strings.Split(text[idx+len(citationsMarker):], "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line != "" {
			cited = append(cited, line)
		}
	}
	return answer, cited
}
