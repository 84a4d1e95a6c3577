// Package genai wraps the OpenAI API behind the generation and embedding
// capabilities the pipeline and judge worker depend on.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultFastModel handles rewriting and answer synthesis
	DefaultFastModel = "gpt-4o-mini"
	// DefaultJudgeModel handles evaluation; reasoning is the hard task
	DefaultJudgeModel = "gpt-4o"
	// DefaultEmbeddingModel is used for query embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of ada-002 embeddings
	DefaultEmbeddingDimensions = 1536
)

// Profile selects which model handles a generation call.
type Profile string

const (
	ProfileFast  Profile = "fast"
	ProfileJudge Profile = "judge"
)

var (
	// ErrEmptyPrompt is returned when the prompt is empty
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrEmptyText is returned when embedding input is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the model returns no choices
	ErrEmptyCompletion = errors.New("no completion returned")
)

// CompletionAPI defines the interface for text generation
type CompletionAPI interface {
	Complete(ctx context.Context, model, prompt string, jsonMode bool) (string, error)
}

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client exposes generation by model profile plus query embeddings.
type Client struct {
	completions CompletionAPI
	embeddings  EmbeddingAPI
	fastModel   string
	judgeModel  string
	dimensions  int
}

// OpenAIAdapter implements CompletionAPI and EmbeddingAPI against the
// OpenAI API.
type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, embeddingModel openai.EmbeddingModel) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client:         openai.NewClient(apiKey),
		embeddingModel: embeddingModel,
	}
}

// Complete calls the chat completion API with a single user message.
func (a *OpenAIAdapter) Complete(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

type Config struct {
	APIKey              string
	FastModel           string
	JudgeModel          string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewClient creates a new client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel)
	return newClient(adapter, adapter, cfg)
}

func newClient(completions CompletionAPI, embeddings EmbeddingAPI, cfg Config) *Client {
	fastModel := cfg.FastModel
	if fastModel == "" {
		fastModel = DefaultFastModel
	}
	judgeModel := cfg.JudgeModel
	if judgeModel == "" {
		judgeModel = DefaultJudgeModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		completions: completions,
		embeddings:  embeddings,
		fastModel:   fastModel,
		judgeModel:  judgeModel,
		dimensions:  dimensions,
	}
}

// NewClientFromEnv creates a new client using the OPENAI_API_KEY
// environment variable.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

func (c *Client) model(profile Profile) string {
	if profile == ProfileJudge {
		return c.judgeModel
	}
	return c.fastModel
}

// Generate produces free-form text for the given profile.
func (c *Client) Generate(ctx context.Context, prompt string, profile Profile) (string, error) {
	return c.generate(ctx, prompt, profile, false)
}

// GenerateJSON produces text constrained to a single JSON object.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, profile Profile) (string, error) {
	return c.generate(ctx, prompt, profile, true)
}

func (c *Client) generate(ctx context.Context, prompt string, profile Profile, jsonMode bool) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	out, err := c.completions.Complete(ctx, c.model(profile), prompt, jsonMode)
	if err != nil {
		return "", fmt.Errorf("generation failed (%s): %w", profile, err)
	}
	return out, nil
}

// EmbedQuery generates an embedding for the given query text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.embeddings.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

// IsTransient reports whether a generation error is worth retrying:
// rate limits, timeouts, and server-side failures. Content-policy and
// other client errors are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusRequestTimeout:
			return true
		}
		return apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		// Connection-level failures
		return true
	}

	return false
}
