package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
)

const (
	defaultPollInterval    = 3 * time.Second
	defaultMaxPollAttempts = 40
)

// AssemblyAI uploads each chunk, submits a transcript job and polls it at a
// fixed interval for a bounded number of attempts.
type AssemblyAI struct {
	client       *aai.Client
	language     string
	model        string
	pollInterval time.Duration
	maxAttempts  int
}

func NewAssemblyAI(opts Options) *AssemblyAI {
	clientOpts := []aai.ClientOption{aai.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, aai.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
	}

	a := &AssemblyAI{
		client:       aai.NewClientWithOptions(clientOpts...),
		language:     opts.Language,
		model:        opts.Model,
		pollInterval: opts.PollInterval,
		maxAttempts:  opts.MaxPollAttempts,
	}
	if a.pollInterval <= 0 {
		a.pollInterval = defaultPollInterval
	}
	if a.maxAttempts <= 0 {
		a.maxAttempts = defaultMaxPollAttempts
	}
	return a
}

func (a *AssemblyAI) Transcribe(ctx context.Context, _ string, audio []byte, _ string) (string, error) {
	audioURL, err := a.client.Upload(ctx, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("assemblyai upload: %w", err)
	}

	params := &aai.TranscriptOptionalParams{}
	if a.language != "" {
		params.LanguageCode = aai.TranscriptLanguageCode(a.language)
	}
	if a.model != "" {
		params.SpeechModel = aai.SpeechModel(a.model)
	}

	job, err := a.client.Transcripts.SubmitFromURL(ctx, audioURL, params)
	if err != nil {
		return "", fmt.Errorf("assemblyai submit: %w", err)
	}
	if job.ID == nil || *job.ID == "" {
		return "", fmt.Errorf("assemblyai submit: response has no transcript id")
	}

	return a.poll(ctx, *job.ID)
}

// poll bounds the wait instead of using the SDK's unbounded wait helpers.
func (a *AssemblyAI) poll(ctx context.Context, id string) (string, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		job, err := a.client.Transcripts.Get(ctx, id)
		if err != nil {
			return "", fmt.Errorf("assemblyai poll: %w", err)
		}

		switch job.Status {
		case aai.TranscriptStatusCompleted:
			return strings.TrimSpace(deref(job.Text)), nil
		case aai.TranscriptStatusError:
			return "", fmt.Errorf("assemblyai transcript %s failed: %s", id, deref(job.Error))
		}
	}

	return "", fmt.Errorf("assemblyai transcript %s not ready after %d attempts: %w", id, a.maxAttempts, ErrTimeout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
