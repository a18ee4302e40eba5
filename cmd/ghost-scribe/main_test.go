package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/sjawhar/ghost-scribe/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")
	logger.Info("hello", "session_id", "s1")
	logger.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["session_id"] != "s1" {
		t.Fatalf("unexpected record: %#v", rec)
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "text").Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("expected text record, got %q", buf.String())
	}
}

func TestNewUploaderDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "text")

	if up := newUploader(context.Background(), config.Config{}, logger); up != nil {
		t.Fatal("expected nil uploader without a folder id")
	}

	cfg := config.Config{GDriveFolderID: "folder", GoogleCredentialsFile: t.TempDir() + "/missing.json"}
	if up := newUploader(context.Background(), cfg, logger); up != nil {
		t.Fatal("expected nil uploader when credentials are missing")
	}
	if !strings.Contains(buf.String(), "gdrive export disabled") {
		t.Fatalf("expected warning, got %q", buf.String())
	}
}
