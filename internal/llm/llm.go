// Package llm provides the text-generation clients the profiler talks to.
package llm

import (
	"context"
	"fmt"
)

const (
	BackendGenerativeAI = "generative-ai-go"
	BackendGenAI        = "genai"
)

// Options configures a generation client.
type Options struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
}

// Client generates raw text from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// New constructs the client for backend.
func New(ctx context.Context, backend string, opts Options) (Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	switch backend {
	case BackendGenerativeAI, "":
		return NewGeminiClient(ctx, opts)
	case BackendGenAI:
		return NewGenAIClient(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", backend)
	}
}

const DefaultModel = "gemini-2.5-flash-lite"
