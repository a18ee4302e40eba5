package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantProvider string
		wantModel    string
		wantErr      string
	}{
		{name: "valid", input: "openai/gpt-4o-mini", wantProvider: "openai", wantModel: "gpt-4o-mini"},
		{name: "nested model path", input: "gemini/models/gemini-2.0-flash", wantProvider: "gemini", wantModel: "models/gemini-2.0-flash"},
		{name: "surrounding space", input: " anthropic/claude-sonnet-4-5 ", wantProvider: "anthropic", wantModel: "claude-sonnet-4-5"},
		{name: "missing slash", input: "openai", wantErr: "invalid model format"},
		{name: "empty provider", input: "/gpt-4o-mini", wantErr: "invalid model format"},
		{name: "empty model", input: "openai/", wantErr: "invalid model format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, modelName, err := ParseModel(tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseModel returned error: %v", err)
			}
			if provider != tt.wantProvider || modelName != tt.wantModel {
				t.Fatalf("expected %s/%s, got %s/%s", tt.wantProvider, tt.wantModel, provider, modelName)
			}
		})
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	client, err := NewClient("unknown", "key", "some-model")
	if err == nil {
		t.Fatalf("expected error for unknown provider, got nil")
	}
	if client != nil {
		t.Fatalf("expected nil client, got %#v", client)
	}
	if !strings.Contains(err.Error(), "unknown LLM provider") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompleteRejectsEmptyUserPrompt(t *testing.T) {
	for _, provider := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
		t.Run(provider, func(t *testing.T) {
			client, err := NewClient(provider, "key", "model", WithBaseURL("http://127.0.0.1:1"))
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}
			_, err = client.Complete(context.Background(), Prompt{System: "summarize", User: "  "})
			if err == nil || !strings.Contains(err.Error(), "no user content") {
				t.Fatalf("expected prompt error, got %v", err)
			}
			if errors.Is(err, ErrEmptyResponse) {
				t.Fatalf("prompt error must not be ErrEmptyResponse: %v", err)
			}
		})
	}
}
