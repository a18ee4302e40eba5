package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriterWritesSessionFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	summary := "## Overview\nShipped it."
	sess := Session{
		ID:        "s1",
		Title:     "Standup",
		Mode:      ModeMic,
		Summary:   &summary,
		CreatedAt: time.Date(2026, 2, 26, 10, 30, 0, 0, time.UTC),
	}
	segments := []Segment{
		{SessionID: "s1", ChunkIndex: 0, Text: "Hello world.", StartedAtMs: int64Ptr(0)},
		{SessionID: "s1", ChunkIndex: 1, Text: "Second line."},
	}

	path, err := w.WriteSession(sess, segments)
	if err != nil {
		t.Fatalf("WriteSession failed: %v", err)
	}
	if want := filepath.Join(dir, "2026-02-26", "s1.md"); path != want {
		t.Fatalf("expected path %q, got %q", want, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	content := string(data)
	for _, want := range []string{"# Standup", "Shipped it.", "[0:00] Hello world.", "Second line."} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in content, got: %s", want, content)
		}
	}
}

func TestWriterOverwritesPreviousExport(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	sess := Session{ID: "s1", Title: "Standup", CreatedAt: time.Date(2026, 2, 26, 10, 30, 0, 0, time.UTC)}

	if _, err := w.WriteSession(sess, []Segment{{Text: "First."}}); err != nil {
		t.Fatalf("first WriteSession failed: %v", err)
	}
	path, err := w.WriteSession(sess, []Segment{{Text: "Replaced."}})
	if err != nil {
		t.Fatalf("second WriteSession failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "First.") {
		t.Fatalf("expected previous export to be replaced, got: %s", data)
	}
	if !strings.Contains(string(data), "Replaced.") {
		t.Fatalf("expected new content, got: %s", data)
	}
}
