package export

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/storage"
)

type uploaderMock struct {
	key, name, path string
	calls           int
	err             error
}

func (u *uploaderMock) Upload(_ context.Context, key, name, localPath string) error {
	u.calls++
	u.key, u.name, u.path = key, name, localPath
	return u.err
}

func testSession() storage.Session {
	text := "## Overview\nShipped."
	return storage.Session{
		ID:        "s1",
		Title:     "Standup",
		Mode:      storage.ModeTab,
		Status:    storage.StatusCompleted,
		Summary:   &text,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestExportWritesAndUploads(t *testing.T) {
	up := &uploaderMock{}
	e := New(storage.NewWriter(t.TempDir()), up, nil)

	segs := []storage.Segment{{SessionID: "s1", ChunkIndex: 0, Text: "hello"}}
	if err := e.Export(context.Background(), testSession(), segs); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if up.calls != 1 || up.key != "s1" {
		t.Fatalf("expected one upload for s1, got %+v", up)
	}
	if up.name != "ghost-scribe 2026-03-01 Standup" {
		t.Fatalf("unexpected doc name %q", up.name)
	}
	data, err := os.ReadFile(up.path)
	if err != nil {
		t.Fatalf("read export failed: %v", err)
	}
	if !strings.Contains(string(data), "## Overview") || !strings.Contains(string(data), "hello") {
		t.Fatalf("unexpected export content:\n%s", data)
	}
}

func TestExportWithoutUploader(t *testing.T) {
	e := New(storage.NewWriter(t.TempDir()), nil, nil)
	if err := e.Export(context.Background(), testSession(), nil); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
}

func TestExportUploadError(t *testing.T) {
	up := &uploaderMock{err: errors.New("quota")}
	e := New(storage.NewWriter(t.TempDir()), up, nil)

	err := e.Export(context.Background(), testSession(), nil)
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("expected upload error, got %v", err)
	}
}
