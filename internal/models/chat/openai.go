package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// OpenAIChat talks to any OpenAI-compatible chat completions API.
type OpenAIChat struct {
	client    *openai.Client
	modelName string
}

// NewOpenAIChat constructs a chat backend against baseURL using apiKey.
func NewOpenAIChat(apiKey, baseURL, modelName string) *OpenAIChat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIChat{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
	}
}

func (c *OpenAIChat) buildMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Chat performs a single non-streaming completion.
func (c *OpenAIChat) Chat(ctx context.Context, system string, messages []Message, opts Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    c.buildMessages(system, messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		logger.Errorf(ctx, "openai chat request to %s failed: %v", c.modelName, err)
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response from %s", c.modelName)
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatStream performs a streaming completion, emitting one token per delta
// and a final element carrying StreamStats.
func (c *OpenAIChat) ChatStream(ctx context.Context, system string, messages []Message, opts Options) (<-chan interfaces.StreamToken, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    c.buildMessages(system, messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	}
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		logger.Errorf(ctx, "openai chat stream to %s failed: %v", c.modelName, err)
		return nil, fmt.Errorf("openai chat stream: %w", err)
	}

	out := make(chan interfaces.StreamToken)
	go func() {
		defer close(out)
		defer stream.Close()
		var tokens int
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				out <- interfaces.StreamToken{
					Stats: &interfaces.StreamStats{TokensGenerated: tokens, ModelUsed: c.modelName},
				}
				return
			}
			if err != nil {
				logger.Errorf(ctx, "openai chat stream recv from %s failed: %v", c.modelName, err)
				out <- interfaces.StreamToken{Err: fmt.Errorf("openai chat stream recv: %w", err)}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			tokens++
			select {
			case out <- interfaces.StreamToken{Token: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *OpenAIChat) GetModelName() string { return c.modelName }
