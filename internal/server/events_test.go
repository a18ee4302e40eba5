package server

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventSerialization(t *testing.T) {
	at := time.Unix(1, 0)
	start := int64(0)
	events := []any{
		ConnectionEvent{Event: newEvent(EventConnection, at), Connected: true},
		SessionCreatedEvent{Event: newEvent(EventSessionCreated, at), SessionID: "abc"},
		SessionStatusEvent{Event: newEvent(EventSessionStatus, at), SessionID: "abc", Status: "PAUSED"},
		TranscriptUpdateEvent{Event: newEvent(EventTranscriptUpdate, at), SessionID: "abc", ChunkIndex: 0, Text: "hi", StartedAtMs: &start},
		SummaryReadyEvent{Event: newEvent(EventSummaryReady, at), SessionID: "abc", Summary: "ok"},
		SummaryFailedEvent{Event: newEvent(EventSummaryFailed, at), SessionID: "abc", Error: "boom"},
		SessionErrorEvent{Event: newEvent(EventSessionError, at), Error: "bad", Code: "validation"},
	}

	for _, event := range events {
		b, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var payload map[string]any
		if err := json.Unmarshal(b, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}

		if payload["type"] == nil {
			t.Fatalf("missing type in payload: %s", string(b))
		}
		if payload["version"] == nil {
			t.Fatalf("missing version in payload: %s", string(b))
		}
		if payload["timestamp"] == nil {
			t.Fatalf("missing timestamp in payload: %s", string(b))
		}
	}
}

func TestTranscriptUpdateOmitsMissingOffsets(t *testing.T) {
	b, err := json.Marshal(TranscriptUpdateEvent{Event: newEvent(EventTranscriptUpdate, time.Time{}), SessionID: "abc", ChunkIndex: 3, Text: "x"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var payload map[string]any
	_ = json.Unmarshal(b, &payload)
	if _, ok := payload["startedAtMs"]; ok {
		t.Fatalf("expected startedAtMs to be omitted: %s", b)
	}
	if payload["chunkIndex"] != float64(3) {
		t.Fatalf("expected chunkIndex 3, got %#v", payload["chunkIndex"])
	}
}
