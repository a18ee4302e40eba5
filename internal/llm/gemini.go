package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func newGeminiClient(apiKey, model string, opts *clientOptions) (*geminiClient, error) {
	config := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if opts.baseURL != "" {
		config.HTTPOptions.BaseURL = opts.baseURL
	}

	client, err := genai.NewClient(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &geminiClient{client: client, model: model, maxTokens: int32(opts.maxTokens)}, nil
}

func geminiRequest(p Prompt, maxTokens int32) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: p.User}}}}

	config := &genai.GenerateContentConfig{}
	if p.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = maxTokens
	}
	return contents, config
}

func (c *geminiClient) Complete(ctx context.Context, p Prompt) (string, error) {
	if err := checkPrompt(p); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	contents, config := geminiRequest(p, c.maxTokens)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}
