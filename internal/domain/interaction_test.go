package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInteraction(t *testing.T) {
	chunks := []RetrievedChunk{
		{ChunkID: "c1", Source: "finance_act.pdf", Text: "Section 12 amends the tax schedule.", Score: 0.91},
	}

	i := NewInteraction("what changed?", "tax schedule amendments sections", chunks, "Section 12 amends the schedule.", []string{"finance_act.pdf"})

	assert.NotEmpty(t, i.ID)
	assert.Equal(t, "what changed?", i.RawQuery)
	assert.Equal(t, "tax schedule amendments sections", i.RewrittenQuery)
	assert.False(t, i.CreatedAt.IsZero())
	assert.True(t, i.Complete())
}

func TestInteraction_Complete(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		answer   string
		expected bool
	}{
		{"complete", "abc", "an answer", true},
		{"missing answer", "abc", "", false},
		{"whitespace answer", "abc", "   ", false},
		{"missing id", "", "an answer", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := &Interaction{ID: tt.id, Answer: tt.answer}
			assert.Equal(t, tt.expected, i.Complete())
		})
	}
}

func TestInteraction_ContextText(t *testing.T) {
	i := &Interaction{
		RetrievedChunks: []RetrievedChunk{
			{Source: "a.pdf", Text: "first chunk"},
			{Source: "b.pdf", Text: "second chunk"},
		},
	}

	ctx := i.ContextText()
	assert.Contains(t, ctx, "[Source: a.pdf]\nfirst chunk\n---\n")
	assert.Contains(t, ctx, "[Source: b.pdf]\nsecond chunk\n---\n")
	assert.True(t, strings.Index(ctx, "first chunk") < strings.Index(ctx, "second chunk"), "chunk order must follow retrieval rank")
}

func TestInteraction_ContextText_Empty(t *testing.T) {
	i := &Interaction{}
	assert.Equal(t, "", i.ContextText())
}
