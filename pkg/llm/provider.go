package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrEmptyResponse = errors.New("llm returned an empty response")

// Message is a chat turn in a provider-agnostic format.
type Message struct {
	Role    string
	Content string
}

type Options struct {
	Temperature float32
	MaxTokens   int
	Model       string // overrides the provider default
}

type Option func(*Options)

func WithTemperature(temp float32) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// LLMProvider is any chat-completion backend.
type LLMProvider interface {
	Name() string
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
}

// Generate sends one system + user exchange.
func Generate(ctx context.Context, p LLMProvider, system, prompt string, options ...Option) (string, error) {
	history := make([]Message, 0, 2)
	if system != "" {
		history = append(history, Message{Role: RoleSystem, Content: system})
	}
	history = append(history, Message{Role: RoleUser, Content: prompt})
	return p.Chat(ctx, history, options...)
}
