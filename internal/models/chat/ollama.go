package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaChat talks to a locally-running Ollama instance.
type OllamaChat struct {
	client    *ollamaapi.Client
	modelName string
}

// NewOllamaChat constructs a chat backend against a local Ollama server.
func NewOllamaChat(baseURL, modelName string) *OllamaChat {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		parsed, _ = url.Parse(defaultOllamaBaseURL)
	}
	return &OllamaChat{
		client:    ollamaapi.NewClient(parsed, http.DefaultClient),
		modelName: modelName,
	}
}

func (c *OllamaChat) convertMessages(system string, messages []Message) []ollamaapi.Message {
	out := make([]ollamaapi.Message, 0, len(messages)+1)
	if system != "" {
		out = append(out, ollamaapi.Message{Role: "system", Content: system})
	}
	for _, m := range messages {
		out = append(out, ollamaapi.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OllamaChat) buildRequest(system string, messages []Message, opts Options, stream bool) *ollamaapi.ChatRequest {
	streamFlag := stream
	req := &ollamaapi.ChatRequest{
		Model:    c.modelName,
		Messages: c.convertMessages(system, messages),
		Stream:   &streamFlag,
		Options:  make(map[string]interface{}),
	}
	if opts.Temperature > 0 {
		req.Options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	return req
}

// Chat performs a single non-streaming completion.
func (c *OllamaChat) Chat(ctx context.Context, system string, messages []Message, opts Options) (string, error) {
	req := c.buildRequest(system, messages, opts, false)

	var content string
	err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
		content = resp.Message.Content
		return nil
	})
	if err != nil {
		logger.Errorf(ctx, "ollama chat request to %s failed: %v", c.modelName, err)
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return content, nil
}

// ChatStream performs a streaming completion, emitting one token per delta
// and a final element carrying StreamStats.
func (c *OllamaChat) ChatStream(ctx context.Context, system string, messages []Message, opts Options) (<-chan interfaces.StreamToken, error) {
	req := c.buildRequest(system, messages, opts, true)

	out := make(chan interfaces.StreamToken)
	go func() {
		defer close(out)
		var tokens int
		err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
			if resp.Message.Content != "" {
				tokens++
				select {
				case out <- interfaces.StreamToken{Token: resp.Message.Content}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if resp.Done {
				out <- interfaces.StreamToken{
					Stats: &interfaces.StreamStats{TokensGenerated: tokens, ModelUsed: c.modelName},
				}
			}
			return nil
		})
		if err != nil {
			logger.Errorf(ctx, "ollama chat stream to %s failed: %v", c.modelName, err)
			out <- interfaces.StreamToken{Err: fmt.Errorf("ollama chat stream: %w", err)}
		}
	}()
	return out, nil
}

func (c *OllamaChat) GetModelName() string { return c.modelName }
