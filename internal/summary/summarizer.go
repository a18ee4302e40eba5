package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sjawhar/ghost-scribe/internal/llm"
)

// Request is one summarization call. Transcript is already formatted and
// truncated.
type Request struct {
	SessionID  string
	Transcript string
	Chunks     int
}

type ClientFactory func(provider, model string) (llm.Client, error)

// LLM summarizes transcripts with a chat model named "provider/model_name".
// Each call is single-shot; failures are reported, not retried.
type LLM struct {
	model   string
	factory ClientFactory
}

func NewLLM(model string, factory ClientFactory) *LLM {
	return &LLM{model: model, factory: factory}
}

func (s *LLM) Summarize(ctx context.Context, req Request) (string, error) {
	provider, model, err := llm.ParseModel(s.model)
	if err != nil {
		return "", err
	}

	client, err := s.factory(provider, model)
	if err != nil {
		return "", fmt.Errorf("create llm client: %w", err)
	}

	result, err := client.Complete(ctx, llm.Prompt{
		System: SystemPrompt,
		User:   fmt.Sprintf(userTemplate, req.Transcript),
	})
	if err != nil {
		return "", fmt.Errorf("summarize session %s: %w", req.SessionID, err)
	}
	return result, nil
}

// Mock returns a fixed recap and never fails.
type Mock struct{}

func (Mock) Summarize(_ context.Context, req Request) (string, error) {
	return strings.Join([]string{
		"## Mock Summary",
		fmt.Sprintf("Chunks processed: %d", req.Chunks),
		"Configure a summarization API key to receive AI-generated summaries.",
	}, "\n"), nil
}

type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// New returns an LLM summarizer when apiKey is set and the model names a
// known provider, otherwise the Mock. The fallback is logged once.
func New(model, apiKey string, opts ...llm.Option) Summarizer {
	provider, _, err := llm.ParseModel(model)
	if err != nil {
		slog.Warn("summarization model invalid, using mock summaries", "model", model, "error", err)
		return Mock{}
	}
	if apiKey == "" {
		slog.Warn("summarization API key missing, using mock summaries", "provider", provider)
		return Mock{}
	}

	return NewLLM(model, func(provider, model string) (llm.Client, error) {
		return llm.NewClient(provider, apiKey, model, opts...)
	})
}
