package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIClient talks to Gemini through the google.golang.org/genai SDK.
type GenAIClient struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGenAIClient(ctx context.Context, opts Options) (*GenAIClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		client: client,
		model:  opts.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(opts.Temperature),
			TopP:            genai.Ptr(opts.TopP),
			MaxOutputTokens: opts.MaxOutputTokens,
		},
	}, nil
}

// Close is a no-op; the SDK holds no resources that need releasing.
func (c *GenAIClient) Close() error { return nil }

func (c *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no content generated")
	}
	return b.String(), nil
}
