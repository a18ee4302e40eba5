package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrTimeout is returned when a poll-based provider exhausts its attempts
// before the transcript is ready.
var ErrTimeout = errors.New("transcription timed out")

// Transcriber converts one audio chunk to text. contextText holds the most
// recent transcript lines and may be used as a prompt.
type Transcriber interface {
	Transcribe(ctx context.Context, mimeType string, audio []byte, contextText string) (string, error)
}

const (
	ProviderAssemblyAI = "assemblyai"
	ProviderDeepgram   = "deepgram"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
)

type Options struct {
	Provider        string
	APIKey          string
	Model           string
	Language        string
	PollInterval    time.Duration
	MaxPollAttempts int
	// BaseURL overrides the provider endpoint; used by tests.
	BaseURL string
}

// New builds the configured provider. Without an API key, or for an unknown
// provider, it returns a Mock and logs the fallback once.
func New(opts Options) (Transcriber, error) {
	if opts.APIKey == "" {
		slog.Warn("transcription API key missing, using mock transcripts", "provider", opts.Provider)
		return NewMock(), nil
	}

	switch opts.Provider {
	case ProviderAssemblyAI:
		return NewAssemblyAI(opts), nil
	case ProviderDeepgram:
		return NewDeepgram(opts), nil
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	case ProviderGemini:
		t, err := NewGemini(context.Background(), opts)
		if err != nil {
			return nil, fmt.Errorf("create gemini transcriber: %w", err)
		}
		return t, nil
	default:
		slog.Warn("unknown transcription provider, using mock transcripts", "provider", opts.Provider)
		return NewMock(), nil
	}
}

// Mock returns a deterministic placeholder and never fails.
type Mock struct {
	now func() time.Time
}

func NewMock() *Mock {
	return &Mock{now: time.Now}
}

func (m *Mock) Transcribe(_ context.Context, mimeType string, _ []byte, _ string) (string, error) {
	return fmt.Sprintf("[mock-transcript] %s chunk (%s)", m.now().Format("15:04:05"), mimeType), nil
}
