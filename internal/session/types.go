package session

import (
	"context"

	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/summary"
)

type Store interface {
	CreateSession(sess storage.Session) error
	GetSession(id string) (storage.Session, error)
	ListSessions(limit int) ([]storage.Session, error)
	UpdateStatus(id, status string) error
	UpdateSummary(id, summaryStatus string, summary *string, status string) error
	UpsertSegment(seg storage.Segment) (storage.Segment, error)
	GetSegments(sessionID string) ([]storage.Segment, error)
	RecentSegments(sessionID string, limit int) ([]storage.Segment, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, mimeType string, audio []byte, contextText string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, req summary.Request) (string, error)
}

// Broadcaster fans session events out to subscribers of a session id.
type Broadcaster interface {
	BroadcastSessionStatus(sessionID, status string)
	BroadcastTranscript(seg storage.Segment)
	BroadcastSummaryReady(sessionID, summary string)
	BroadcastSummaryFailed(sessionID, errMsg string)
}

// AudioArchive keeps the raw payload of each ingested chunk.
type AudioArchive interface {
	Save(sessionID string, chunkIndex int, mimeType string, data []byte) (string, error)
}

// Exporter publishes a session once its summary is ready.
type Exporter interface {
	Export(ctx context.Context, sess storage.Session, segments []storage.Segment) error
}

// Chunk is one audio:chunk ingestion request.
type Chunk struct {
	SessionID   string
	ChunkIndex  int
	MimeType    string
	Audio       []byte
	DurationMs  *int64
	StartedAtMs *int64
	EndedAtMs   *int64
}

// Detail is a session together with its ordered transcript.
type Detail struct {
	Session  storage.Session   `json:"session"`
	Segments []storage.Segment `json:"segments"`
}
