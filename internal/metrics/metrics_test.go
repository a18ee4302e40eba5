package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordChunkIngested()
	m.ObserveTranscription(time.Second)
	m.RecordTranscriptionFailure("timeout")
	m.RecordSummary("ready", time.Second)
	m.ClientConnected()
	m.ClientDisconnected()
	m.RecordDroppedEvent()
	m.RecordHTTPRequest("/api/sessions", "200")
}

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.RecordChunkIngested()
	m.RecordChunkIngested()
	m.RecordTranscriptionFailure("timeout")
	m.RecordSummary("failed", 0)

	if got := testutil.ToFloat64(m.ChunksIngested); got != 2 {
		t.Fatalf("expected 2 chunks, got %v", got)
	}
	if got := testutil.ToFloat64(m.TranscriptionFailures.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("expected 1 timeout failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.Summaries.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed summary, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ClientConnected()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "ghost_scribe_ws_clients 1") {
		t.Fatalf("expected gauge in exposition, got: %s", body)
	}
}

func TestInstancesUseSeparateRegistries(t *testing.T) {
	// Registering twice on the default registry would panic.
	_ = New()
	_ = New()
}
