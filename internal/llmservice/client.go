package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"glass-rag/internal/config"
	"glass-rag/internal/models"
)

// ErrCompletion marks transport or non-success failures of the chat
// completion service.
var ErrCompletion = errors.New("completion service error")

// Completer issues one chat completion call. It matches llms.Model's
// GenerateContent, so the Ollama client satisfies it directly and tests can
// substitute a fake.
type Completer interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Client wraps the chat completion model service.
type Client struct {
	llm Completer
}

// NewOllamaClient creates a completion client against an Ollama-compatible
// chat endpoint.
func NewOllamaClient(cfg *config.LLMConfig) (*Client, error) {
	log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("inference_model", cfg.Model).
		Msg("Initializing completion client")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing chat LLM: %w", err)
	}
	return &Client{llm: llm}, nil
}

// NewClient wraps an existing Completer.
func NewClient(llm Completer) *Client {
	return &Client{llm: llm}
}

// Complete sends the full message sequence in one non-streaming call and
// returns the assistant reply.
func (c *Client) Complete(ctx context.Context, messages []models.Message) (models.Message, error) {
	content := make([]llms.MessageContent, len(messages))
	for i, m := range messages {
		content[i] = llms.TextParts(chatMessageType(m.Role), m.Content)
	}

	res, err := c.llm.GenerateContent(ctx, content)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	if len(res.Choices) == 0 {
		return models.Message{}, fmt.Errorf("%w: empty response", ErrCompletion)
	}
	return models.Message{Role: models.RoleAssistant, Content: res.Choices[0].Content}, nil
}

const titlePrompt = "Generate a concise title of at most 5 words for this message. Return only the title, nothing else.\n\nMessage: %s"

// GenerateTitle derives a short conversation title from the first user
// message via a second, independent completion call.
func (c *Client) GenerateTitle(ctx context.Context, userMessage string) (string, error) {
	reply, err := c.Complete(ctx, []models.Message{
		{Role: models.RoleUser, Content: fmt.Sprintf(titlePrompt, userMessage)},
	})
	if err != nil {
		return "", err
	}
	title := NormalizeTitle(reply.Content)
	if title == "" {
		return "", fmt.Errorf("%w: model returned an empty title", ErrCompletion)
	}
	return title, nil
}

// NormalizeTitle trims whitespace, strips surrounding quote characters and
// caps the result at five words. Models regularly wrap short answers in
// quotes despite being told not to.
func NormalizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "\"'`“”‘’")
	title = strings.TrimSpace(title)

	words := strings.Fields(title)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}

func chatMessageType(role string) schema.ChatMessageType {
	switch role {
	case models.RoleSystem:
		return schema.ChatMessageTypeSystem
	case models.RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
