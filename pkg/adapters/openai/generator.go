// Package openai adapts an OpenAI-compatible chat completion API to the
// Generator and Summarizer ports. Any endpoint speaking the same wire
// format (vLLM, Ollama, llama.cpp server) works through WithBaseURL.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
)

// DefaultModel used when none is configured.
const DefaultModel = goopenai.GPT4oMini

// Option configures the Generator.
type Option func(*Generator)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(g *Generator) {
		g.baseURL = baseURL
	}
}

// WithModel selects the model (default DefaultModel).
func WithModel(model string) Option {
	return func(g *Generator) {
		g.model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

// Generator implements ports.Generator on streamed chat completions.
type Generator struct {
	client      *goopenai.Client
	baseURL     string
	model       string
	temperature float32
}

// New creates a generator.
func New(apiKey string, opts ...Option) *Generator {
	g := &Generator{
		model: DefaultModel,
	}
	for _, opt := range opts {
		opt(g)
	}

	config := goopenai.DefaultConfig(apiKey)
	if g.baseURL != "" {
		config.BaseURL = g.baseURL
	}
	g.client = goopenai.NewClientWithConfig(config)
	return g
}

// Generate starts a streamed completion and exposes its deltas as a
// token stream.
func (g *Generator) Generate(ctx context.Context, req ports.Request) (ports.TokenStream, error) {
	messages := make([]goopenai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start completion stream: %w", err)
	}
	return &tokenStream{stream: stream}, nil
}

type tokenStream struct {
	stream *goopenai.ChatCompletionStream
}

// Next returns the next non-empty delta, io.EOF when the completion ends.
func (s *tokenStream) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			s.stream.Close()
			return "", err
		}

		resp, err := s.stream.Recv()
		if err != nil {
			s.stream.Close()
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("completion stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

// Summarize implements ports.Summarizer with a single non-streamed call.
func (g *Generator) Summarize(ctx context.Context, state map[string]*domain.StateEntry) (string, error) {
	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode state for summary: %w", err)
	}

	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: "Summarize the following agent state store in a few sentences. Mention each key and what its result holds.",
			},
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: string(encoded),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
