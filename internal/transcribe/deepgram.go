package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

const defaultDeepgramModel = "nova-2"

// Deepgram sends each chunk to the pre-recorded REST endpoint.
type Deepgram struct {
	api      *prerecorded.Client
	model    string
	language string
}

func NewDeepgram(opts Options) *Deepgram {
	client.Init(client.InitLib{LogLevel: client.LogLevelDefault})

	cOptions := &interfaces.ClientOptions{}
	if opts.BaseURL != "" {
		cOptions.Host = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = defaultDeepgramModel
	}

	return &Deepgram{
		api:      prerecorded.New(client.NewREST(opts.APIKey, cOptions)),
		model:    model,
		language: opts.Language,
	}
}

func (d *Deepgram) Transcribe(ctx context.Context, _ string, audio []byte, _ string) (string, error) {
	res, err := d.api.FromStream(ctx, bytes.NewReader(audio), &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.model,
		Language:    d.language,
		Punctuate:   true,
		SmartFormat: true,
	})
	if err != nil {
		return "", fmt.Errorf("deepgram transcribe: %w", err)
	}
	if res == nil || res.Results == nil || len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}

	return strings.TrimSpace(res.Results.Channels[0].Alternatives[0].Transcript), nil
}
