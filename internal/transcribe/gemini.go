package transcribe

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini sends audio inline with a transcription instruction.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	config := &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI}
	if opts.BaseURL != "" {
		config.HTTPOptions.BaseURL = opts.BaseURL
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func geminiInstruction(contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		contextText = "None"
	}
	return strings.Join([]string{
		"You are a speech-to-text engine for meeting recordings.",
		"Return only the literal transcript of the provided audio chunk.",
		"Previous transcript context:",
		contextText,
	}, "\n")
}

func (g *Gemini) Transcribe(ctx context.Context, mimeType string, audio []byte, contextText string) (string, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: geminiInstruction(contextText)},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: audio}},
		},
	}}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcription: %w", err)
	}
	return strings.TrimSpace(result.Text()), nil
}
