package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/evorag-ai/evorag/internal/genai"
	"github.com/evorag-ai/evorag/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func loadPrompts(t *testing.T) *prompts.Store {
	t.Helper()
	store, err := prompts.Load("")
	require.NoError(t, err)
	return store
}

func TestQueryTransformer_Rewrite(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "What are the main components of the Finance Act?")
	}), genai.ProfileFast).Return(`{"rewritten_query": "Finance Act sections schedules provisions tax amendments"}`, nil)

	transformer := NewQueryTransformer(gen, loadPrompts(t))
	out := transformer.Rewrite(context.Background(), "What are the main components of the Finance Act?")

	assert.Equal(t, "Finance Act sections schedules provisions tax amendments", out)
	gen.AssertExpectations(t)
}

func TestQueryTransformer_Rewrite_GenerationFailure_FallsBack(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("GenerateJSON", mock.Anything, mock.Anything, genai.ProfileFast).Return("", errors.New("rate limited"))

	transformer := NewQueryTransformer(gen, loadPrompts(t))
	out := transformer.Rewrite(context.Background(), "original question")

	assert.Equal(t, "original question", out)
}

func TestQueryTransformer_Rewrite_MalformedJSON_FallsBack(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("GenerateJSON", mock.Anything, mock.Anything, genai.ProfileFast).Return("not json at all", nil)

	transformer := NewQueryTransformer(gen, loadPrompts(t))
	out := transformer.Rewrite(context.Background(), "original question")

	assert.Equal(t, "original question", out)
}

func TestQueryTransformer_Rewrite_EmptyRewrite_FallsBack(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("GenerateJSON", mock.Anything, mock.Anything, genai.ProfileFast).Return(`{"rewritten_query": "  "}`, nil)

	transformer := NewQueryTransformer(gen, loadPrompts(t))
	out := transformer.Rewrite(context.Background(), "original question")

	assert.Equal(t, "original question", out)
}

// The fallback property: for any non-empty raw query, Rewrite returns a
// non-empty string no matter how generation misbehaves.
func TestQueryTransformer_Rewrite_NeverEmpty(t *testing.T) {
	outputs := []struct {
		out string
		err error
	}{
		{"", errors.New("timeout")},
		{"{}", nil},
		{`{"rewritten_query": ""}`, nil},
		{`{"wrong_key": "x"}`, nil},
	}

	for _, o := range outputs {
		gen := new(MockGenerator)
		gen.On("GenerateJSON", mock.Anything, mock.Anything, genai.ProfileFast).Return(o.out, o.err)
		transformer := NewQueryTransformer(gen, loadPrompts(t))

		got := transformer.Rewrite(context.Background(), "q")
		assert.NotEmpty(t, got)
	}
}
