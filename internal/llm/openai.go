package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChat calls the OpenAI chat completions API.
type OpenAIChat struct {
	client *openai.Client
	model  string
}

// NewOpenAIChat creates a chat client for the given model, e.g. gpt-4o.
func NewOpenAIChat(apiKey, model string) *OpenAIChat {
	return &OpenAIChat{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Generate sends the system instruction and prompt and returns the
// completion text.
func (c *OpenAIChat) Generate(system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
