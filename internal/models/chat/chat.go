// Package chat implements the LLMGateway port (spec §6.3) against
// OpenAI-compatible and local Ollama backends.
package chat

import (
	"context"

	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Options configures a single chat call (spec §4.1 mode_config).
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Chat is the single-prompt/streaming generation port each backend implements.
type Chat interface {
	Chat(ctx context.Context, system string, messages []Message, opts Options) (string, error)
	ChatStream(ctx context.Context, system string, messages []Message, opts Options) (<-chan interfaces.StreamToken, error)
	GetModelName() string
}

// Gateway adapts a Chat backend to the narrower interfaces.LLMGateway port
// the orchestration packages depend on, so the pipeline never imports a
// concrete backend package.
type Gateway struct {
	backend Chat
}

// NewGateway wraps a Chat backend as an interfaces.LLMGateway.
func NewGateway(backend Chat) *Gateway {
	return &Gateway{backend: backend}
}

func (g *Gateway) Chat(ctx context.Context, system string, messages []interfaces.ChatMessage, params interfaces.ChatParams) (string, error) {
	msgs := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		msgs = append(msgs, Message{Role: m.Role, Content: m.Content})
	}
	return g.backend.Chat(ctx, system, msgs, Options{Temperature: params.Temperature, MaxTokens: params.MaxTokens})
}

func (g *Gateway) ChatStream(ctx context.Context, system string, messages []interfaces.ChatMessage, params interfaces.ChatParams) (<-chan interfaces.StreamToken, error) {
	msgs := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		msgs = append(msgs, Message{Role: m.Role, Content: m.Content})
	}
	return g.backend.ChatStream(ctx, system, msgs, Options{Temperature: params.Temperature, MaxTokens: params.MaxTokens})
}
