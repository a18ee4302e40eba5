package server

import "time"

const EventVersion = 1

// Server -> client event types.
const (
	EventConnection       = "connection"
	EventSessionCreated   = "session:created"
	EventSessionStatus    = "session:status"
	EventTranscriptUpdate = "transcript:update"
	EventSummaryReady     = "summary:ready"
	EventSummaryFailed    = "summary:failed"
	EventSessionError     = "session:error"
)

// Client -> server message types.
const (
	MessageSessionInit   = "session:init"
	MessageSessionJoin   = "session:join"
	MessageAudioChunk    = "audio:chunk"
	MessageSessionPause  = "session:pause"
	MessageSessionResume = "session:resume"
	MessageSessionStop   = "session:stop"
)

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

type SessionCreatedEvent struct {
	Event
	SessionID string `json:"sessionId"`
}

type SessionStatusEvent struct {
	Event
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

type TranscriptUpdateEvent struct {
	Event
	SessionID   string `json:"sessionId"`
	ChunkIndex  int    `json:"chunkIndex"`
	Text        string `json:"text"`
	StartedAtMs *int64 `json:"startedAtMs,omitempty"`
	EndedAtMs   *int64 `json:"endedAtMs,omitempty"`
}

type SummaryReadyEvent struct {
	Event
	SessionID string `json:"sessionId"`
	Summary   string `json:"summary"`
}

type SummaryFailedEvent struct {
	Event
	SessionID string `json:"sessionId"`
	Error     string `json:"error"`
}

type SessionErrorEvent struct {
	Event
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error"`
	Code      string `json:"code"`
}

// clientMessage is the flat union of all client payloads, discriminated by
// Type. Pointer fields distinguish absent from zero.
type clientMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	Title       string `json:"title"`
	Mode        string `json:"mode"`
	ChunkIndex  *int   `json:"chunkIndex"`
	MimeType    string `json:"mimeType"`
	AudioBase64 string `json:"audioBase64"`
	DurationMs  *int64 `json:"durationMs"`
	StartedAtMs *int64 `json:"startedAtMs"`
	EndedAtMs   *int64 `json:"endedAtMs"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
