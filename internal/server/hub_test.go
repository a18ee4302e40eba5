package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/metrics"
	"github.com/sjawhar/ghost-scribe/internal/storage"
)

func receive(t *testing.T, ch chan []byte) map[string]any {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		return payload
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return nil
}

func expectNothing(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("expected no event, got %s", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubPublishesOnlyToSubscribers(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Register()
	b := hub.Register()
	defer hub.Unregister(a)
	defer hub.Unregister(b)

	hub.Subscribe(a, "s1")
	hub.Subscribe(b, "s2")

	hub.BroadcastSessionStatus("s1", storage.StatusPaused)

	payload := receive(t, a)
	if payload["type"] != EventSessionStatus || payload["status"] != storage.StatusPaused || payload["sessionId"] != "s1" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	expectNothing(t, b)
}

func TestHubPreservesPublishOrder(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.Register()
	defer hub.Unregister(ch)
	hub.Subscribe(ch, "s1")

	for i := 0; i < 5; i++ {
		hub.BroadcastTranscript(storage.Segment{SessionID: "s1", ChunkIndex: i, Text: "x"})
	}
	hub.BroadcastSummaryReady("s1", "done")

	for i := 0; i < 5; i++ {
		payload := receive(t, ch)
		if payload["chunkIndex"] != float64(i) {
			t.Fatalf("position %d: got chunk %#v", i, payload["chunkIndex"])
		}
	}
	if payload := receive(t, ch); payload["type"] != EventSummaryReady {
		t.Fatalf("expected summary last, got %#v", payload)
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m)
	ch := hub.Register()
	defer hub.Unregister(ch)
	hub.Subscribe(ch, "s1")

	for i := 0; i < clientBuffer+3; i++ {
		hub.Publish("s1", []byte(`{}`))
	}

	if len(ch) != clientBuffer {
		t.Fatalf("expected full buffer of %d, got %d", clientBuffer, len(ch))
	}
}

func TestHubUnregisterCleansTopics(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.Register()
	hub.Subscribe(ch, "s1")
	hub.Subscribe(ch, "s1")

	if got := hub.Subscribers("s1"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.Unregister(ch)
	if got := hub.Subscribers("s1"); got != 0 {
		t.Fatalf("expected 0 subscribers after unregister, got %d", got)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}

	// Publishing and sending after unregister must not panic.
	hub.Publish("s1", []byte(`{}`))
	hub.Send(ch, []byte(`{}`))
	hub.Unregister(ch)
}
