package openai

import (
	"context"
	"strings"

	"github.com/archiva-labs/doclib/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the OpenAI model used for answer generation
	DefaultChatModel = openai.GPT3Dot5Turbo
	// DefaultTemperature keeps generation close to the provided context
	DefaultTemperature = 0.3

	// insufficientContextMarker is the prefix the model is instructed to emit
	// when the provided context cannot answer the question.
	insufficientContextMarker = "INSUFFICIENT_CONTEXT"
)

const systemPrompt = `You are a question-answering assistant for a document library.
Answer the question using ONLY the provided context. Do not use outside knowledge.
If the context does not contain the information needed to answer, reply starting
with the exact token ` + insufficientContextMarker + ` followed by a short explanation.`

// GenerationAPI defines the interface for answer generation
type GenerationAPI interface {
	CreateCompletion(ctx context.Context, prompt string) (string, error)
}

// GenerationResult is the generated answer plus the model's own
// low-confidence signal.
type GenerationResult struct {
	Text          string
	LowConfidence bool
}

// GenerationClient wraps the OpenAI chat completion API. Transient failures
// are retried once; a second failure is surfaced to the caller, which
// degrades the answer rather than failing the query.
type GenerationClient struct {
	api   GenerationAPI
	model string
}

type chatAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
}

func (a *chatAdapter) CreateCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", domain.ErrGenerationService
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerationConfig configures a GenerationClient.
type GenerationConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// NewGenerationClient creates a GenerationClient with defaults.
func NewGenerationClient(apiKey string) *GenerationClient {
	return NewGenerationClientWithConfig(GenerationConfig{APIKey: apiKey})
}

// NewGenerationClientWithConfig creates a GenerationClient with explicit configuration.
func NewGenerationClientWithConfig(cfg GenerationConfig) *GenerationClient {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &GenerationClient{
		api: &chatAdapter{
			client:      openai.NewClient(cfg.APIKey),
			model:       model,
			temperature: temperature,
		},
		model: model,
	}
}

// Model returns the chat model identity used for generation.
func (c *GenerationClient) Model() string { return c.model }

// Generate produces a grounded answer for the question from the assembled
// context. The model's insufficient-context marker is stripped from the
// returned text and reported via LowConfidence.
func (c *GenerationClient) Generate(ctx context.Context, question, contextText string) (*GenerationResult, error) {
	prompt := buildPrompt(question, contextText)

	text, err := c.api.CreateCompletion(ctx, prompt)
	if err != nil {
		// One retry for transient generation failures.
		text, err = c.api.CreateCompletion(ctx, prompt)
	}
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "generation service request failed", err)
	}

	result := &GenerationResult{Text: strings.TrimSpace(text)}
	if rest, found := strings.CutPrefix(result.Text, insufficientContextMarker); found {
		result.LowConfidence = true
		result.Text = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		if result.Text == "" {
			result.Text = "The provided documents do not contain enough information to answer this question."
		}
	}
	return result, nil
}

func buildPrompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
