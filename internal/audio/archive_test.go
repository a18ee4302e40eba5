package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveSaveAndPath(t *testing.T) {
	dir := t.TempDir()
	archive := NewArchive(dir)

	path, err := archive.Save("abc123", 2, "audio/webm;codecs=opus", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if want := filepath.Join(dir, "abc123", "2.webm"); path != want {
		t.Fatalf("expected path %q, got %q", want, path)
	}

	got, err := archive.Path("abc123", 2)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if got != path {
		t.Fatalf("expected %q, got %q", path, got)
	}

	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("expected 3 bytes, got %d", len(data))
	}
}

func TestArchiveResaveReplacesContainer(t *testing.T) {
	dir := t.TempDir()
	archive := NewArchive(dir)

	if _, err := archive.Save("s1", 0, "audio/webm", []byte("first")); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if _, err := archive.Save("s1", 0, "audio/ogg", []byte("second")); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "s1"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "0.ogg" {
		t.Fatalf("expected only 0.ogg, got %v", entries)
	}
}

func TestArchiveMissingChunk(t *testing.T) {
	archive := NewArchive(t.TempDir())
	if _, err := archive.Path("s1", 9); !errors.Is(err, ErrNotArchived) {
		t.Fatalf("expected ErrNotArchived, got %v", err)
	}
}

func TestArchiveRejectsTraversal(t *testing.T) {
	archive := NewArchive(t.TempDir())
	for _, id := range []string{"", "..", "../etc", `a\b`} {
		if _, err := archive.Save(id, 0, "audio/webm", []byte{1}); err == nil {
			t.Errorf("expected error for session id %q", id)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"audio/webm":             "webm",
		"audio/webm;codecs=opus": "webm",
		"AUDIO/OGG":              "ogg",
		"audio/x-wav":            "wav",
		"audio/mpeg":             "mp3",
		"application/json":       "bin",
		"":                       "bin",
	}
	for in, want := range tests {
		if got := Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}
