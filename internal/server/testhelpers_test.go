package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sjawhar/ghost-scribe/internal/audio"
	"github.com/sjawhar/ghost-scribe/internal/metrics"
	"github.com/sjawhar/ghost-scribe/internal/session"
	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/summary"
	"github.com/sjawhar/ghost-scribe/internal/transcribe"
)

type testStack struct {
	srv     *httptest.Server
	manager *session.Manager
	store   *storage.SQLiteStore
	archive *audio.Archive
	metrics *metrics.Metrics
}

func newTestStack(t *testing.T, opts Options) *testStack {
	t.Helper()
	return newTestStackWith(t, opts, transcribe.NewMock(), summary.Mock{})
}

func newTestStackWith(t *testing.T, opts Options, tr session.Transcriber, sum session.Summarizer) *testStack {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	m := metrics.New()
	hub := NewHub(m)
	archive := audio.NewArchive(filepath.Join(dir, "audio"))
	mgr := session.NewManager(store, tr, sum, hub,
		session.WithMetrics(m),
		session.WithAudioArchive(archive),
	)
	t.Cleanup(mgr.Wait)

	opts.Metrics = m
	opts.Audio = archive
	h, err := Handler(mgr, hub, opts)
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testStack{srv: srv, manager: mgr, store: store, archive: archive, metrics: m}
}

// echoTranscriber returns the audio payload as the transcript and records
// the context each chunk was given.
type echoTranscriber struct {
	mu       sync.Mutex
	contexts []string
}

func (e *echoTranscriber) Transcribe(_ context.Context, _ string, audio []byte, contextText string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contexts = append(e.contexts, contextText)
	return string(audio), nil
}

func (e *echoTranscriber) seen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.contexts...)
}

func (s *testStack) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
