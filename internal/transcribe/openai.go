package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sjawhar/ghost-scribe/internal/audio"
)

// OpenAI transcribes chunks with the Whisper endpoint, passing recent
// transcript lines as the prompt.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAI(opts Options) *OpenAI {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAI{client: openai.NewClientWithConfig(config), model: model, language: opts.Language}
}

func (o *OpenAI) Transcribe(ctx context.Context, mimeType string, data []byte, contextText string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: "chunk." + audio.Extension(mimeType),
		Reader:   bytes.NewReader(data),
		Prompt:   contextText,
		Language: o.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
