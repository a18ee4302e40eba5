package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sjawhar/ghost-scribe/internal/metrics"
	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/summary"
	"github.com/sjawhar/ghost-scribe/internal/transcribe"
)

const (
	DefaultContextWindow = 5
	DefaultListLimit     = 20
	MaxListLimit         = 100

	// EmptyTranscriptSummary is stored when a session stops with no transcript.
	EmptyTranscriptSummary = "No transcript was captured for this session."

	exportTimeout = 2 * time.Minute
)

// ErrTranscriptionTimeout marks transcription failures caused by an exhausted
// poll budget or deadline. It is always wrapped together with
// ErrTranscriptionFailed.
var ErrTranscriptionTimeout = transcribe.ErrTimeout

type Option func(*Manager)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

func WithAudioArchive(a AudioArchive) Option {
	return func(mgr *Manager) { mgr.archive = a }
}

func WithExporter(e Exporter) Option {
	return func(mgr *Manager) { mgr.exporter = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(mgr *Manager) {
		if l != nil {
			mgr.logger = l
		}
	}
}

// WithContextWindow sets how many preceding segments are passed to the
// transcriber as context.
func WithContextWindow(n int) Option {
	return func(mgr *Manager) {
		if n > 0 {
			mgr.contextWindow = n
		}
	}
}

func WithMaxTranscriptChars(n int) Option {
	return func(mgr *Manager) {
		if n > 0 {
			mgr.maxTranscriptChars = n
		}
	}
}

// WithListLimit sets the page size used when List is called without a limit.
func WithListLimit(n int) Option {
	return func(mgr *Manager) {
		if n > 0 && n <= MaxListLimit {
			mgr.listLimit = n
		}
	}
}

func WithTranscriptionTimeout(d time.Duration) Option {
	return func(mgr *Manager) { mgr.transcriptionTimeout = d }
}

func WithSummaryTimeout(d time.Duration) Option {
	return func(mgr *Manager) { mgr.summaryTimeout = d }
}

// Manager orchestrates session lifecycle, chunk ingestion and summaries.
// Mutations of one session are serialized; different sessions run
// concurrently.
type Manager struct {
	store       Store
	transcriber Transcriber
	summarizer  Summarizer
	hub         Broadcaster
	archive     AudioArchive
	exporter    Exporter
	metrics     *metrics.Metrics
	logger      *slog.Logger

	locks                *keyedLocker
	contextWindow        int
	listLimit            int
	maxTranscriptChars   int
	transcriptionTimeout time.Duration
	summaryTimeout       time.Duration

	now   func() time.Time
	newID func() string

	wg sync.WaitGroup
}

func NewManager(store Store, transcriber Transcriber, summarizer Summarizer, hub Broadcaster, opts ...Option) *Manager {
	m := &Manager{
		store:              store,
		transcriber:        transcriber,
		summarizer:         summarizer,
		hub:                hub,
		logger:             slog.Default(),
		locks:              newKeyedLocker(),
		contextWindow:      DefaultContextWindow,
		listLimit:          DefaultListLimit,
		maxTranscriptChars: summary.DefaultMaxTranscriptChars,
		now:                time.Now,
		newID:              uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new RECORDING session. It does not broadcast; the
// caller announces the session once its subscribers are in place.
func (m *Manager) Create(title, mode string) (storage.Session, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < 3 {
		return storage.Session{}, invalid("title", "must be at least 3 characters")
	}
	if mode != storage.ModeTab && mode != storage.ModeMic {
		return storage.Session{}, invalid("mode", "must be tab or mic")
	}

	now := m.now().UTC()
	sess := storage.Session{
		ID:            m.newID(),
		Title:         title,
		Mode:          mode,
		Status:        storage.StatusRecording,
		SummaryStatus: storage.SummaryNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.CreateSession(sess); err != nil {
		return storage.Session{}, fmt.Errorf("create session: %w", err)
	}

	m.logger.Info("session created", "session_id", sess.ID, "mode", mode)
	return sess, nil
}

func (m *Manager) Get(id string) (Detail, error) {
	sess, err := m.store.GetSession(id)
	if err != nil {
		return Detail{}, fmt.Errorf("load session %s: %w", id, err)
	}
	segments, err := m.store.GetSegments(id)
	if err != nil {
		return Detail{}, fmt.Errorf("load segments %s: %w", id, err)
	}
	if segments == nil {
		segments = []storage.Segment{}
	}
	return Detail{Session: sess, Segments: segments}, nil
}

// List returns sessions by most recent activity. limit is clamped to
// [1, MaxListLimit]; zero or negative selects the configured page size.
func (m *Manager) List(limit int) ([]storage.Session, error) {
	if limit <= 0 {
		limit = m.listLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	sessions, err := m.store.ListSessions(limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []storage.Session{}
	}
	return sessions, nil
}

// ContextFor joins the texts of the last windowSize segments, oldest first.
func (m *Manager) ContextFor(sessionID string, windowSize int) (string, error) {
	if windowSize <= 0 {
		windowSize = DefaultContextWindow
	}
	recent, err := m.store.RecentSegments(sessionID, windowSize)
	if err != nil {
		return "", fmt.Errorf("load recent segments: %w", err)
	}

	texts := make([]string, len(recent))
	for i, seg := range recent {
		texts[len(recent)-1-i] = seg.Text
	}
	return strings.Join(texts, "\n"), nil
}

// Ingest transcribes one chunk and upserts it into the session transcript.
// The session token is held from the context read until the segment is
// stored and its transcript event is published.
func (m *Manager) Ingest(ctx context.Context, c Chunk) (storage.Segment, error) {
	if err := validateChunk(c); err != nil {
		return storage.Segment{}, err
	}

	unlock, err := m.locks.Lock(ctx, c.SessionID)
	if err != nil {
		return storage.Segment{}, fmt.Errorf("lock session %s: %w", c.SessionID, err)
	}
	defer unlock()

	if _, err := m.store.GetSession(c.SessionID); err != nil {
		return storage.Segment{}, fmt.Errorf("load session %s: %w", c.SessionID, err)
	}

	if m.archive != nil {
		if _, err := m.archive.Save(c.SessionID, c.ChunkIndex, c.MimeType, c.Audio); err != nil {
			m.logger.Warn("archive chunk audio failed", "session_id", c.SessionID, "chunk_index", c.ChunkIndex, "error", err)
		}
	}

	contextText, err := m.ContextFor(c.SessionID, m.contextWindow)
	if err != nil {
		return storage.Segment{}, err
	}

	tctx := ctx
	if m.transcriptionTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, m.transcriptionTimeout)
		defer cancel()
	}

	started := time.Now()
	text, err := m.transcriber.Transcribe(tctx, c.MimeType, c.Audio, contextText)
	m.metrics.ObserveTranscription(time.Since(started))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTranscriptionTimeout) {
			err = fmt.Errorf("%w: %w", ErrTranscriptionTimeout, err)
		}
		kind := "error"
		if errors.Is(err, ErrTranscriptionTimeout) {
			kind = "timeout"
		}
		m.metrics.RecordTranscriptionFailure(kind)
		m.logger.Warn("transcription failed", "session_id", c.SessionID, "chunk_index", c.ChunkIndex, "error", err)
		return storage.Segment{}, fmt.Errorf("%w: chunk %d: %w", ErrTranscriptionFailed, c.ChunkIndex, err)
	}

	seg, err := m.store.UpsertSegment(storage.Segment{
		SessionID:   c.SessionID,
		ChunkIndex:  c.ChunkIndex,
		Text:        text,
		StartedAtMs: c.StartedAtMs,
		EndedAtMs:   c.EndedAtMs,
	})
	if err != nil {
		return storage.Segment{}, fmt.Errorf("store segment: %w", err)
	}

	m.metrics.RecordChunkIngested()
	if m.hub != nil {
		m.hub.BroadcastTranscript(seg)
	}
	return seg, nil
}

func validateChunk(c Chunk) error {
	if strings.TrimSpace(c.SessionID) == "" {
		return invalid("sessionId", "is required")
	}
	if c.ChunkIndex < 0 {
		return invalid("chunkIndex", "must be a non-negative integer")
	}
	if strings.TrimSpace(c.MimeType) == "" {
		return invalid("mimeType", "is required")
	}
	if len(c.Audio) == 0 {
		return invalid("audioBase64", "must not be empty")
	}
	for field, v := range map[string]*int64{"durationMs": c.DurationMs, "startedAtMs": c.StartedAtMs, "endedAtMs": c.EndedAtMs} {
		if v != nil && *v < 0 {
			return invalid(field, "must be a non-negative integer")
		}
	}
	return nil
}

// Transition moves a session to target. Moving to the current status is a
// no-op that still emits the status event.
func (m *Manager) Transition(ctx context.Context, id, target string) (storage.Session, error) {
	if !validStatus(target) {
		return storage.Session{}, invalid("status", fmt.Sprintf("unknown status %q", target))
	}

	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return storage.Session{}, fmt.Errorf("lock session %s: %w", id, err)
	}
	defer unlock()

	sess, _, err := m.transitionLocked(id, target)
	return sess, err
}

func (m *Manager) Pause(ctx context.Context, id string) (storage.Session, error) {
	return m.Transition(ctx, id, storage.StatusPaused)
}

func (m *Manager) Resume(ctx context.Context, id string) (storage.Session, error) {
	return m.Transition(ctx, id, storage.StatusRecording)
}

// Stop commits PROCESSING and returns. The summary runs in the background
// and is observed through broadcasts only.
func (m *Manager) Stop(ctx context.Context, id string) (storage.Session, error) {
	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return storage.Session{}, fmt.Errorf("lock session %s: %w", id, err)
	}
	sess, changed, err := m.transitionLocked(id, storage.StatusProcessing)
	unlock()
	if err != nil {
		return sess, err
	}

	if changed {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.generateSummary(context.Background(), id)
		}()
	}
	return sess, nil
}

func (m *Manager) transitionLocked(id, target string) (storage.Session, bool, error) {
	sess, err := m.store.GetSession(id)
	if err != nil {
		return storage.Session{}, false, fmt.Errorf("load session %s: %w", id, err)
	}

	if sess.Status == target {
		m.broadcastStatus(id, target)
		return sess, false, nil
	}
	if !CanTransition(sess.Status, target) {
		return sess, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, target)
	}

	if err := m.store.UpdateStatus(id, target); err != nil {
		return sess, false, fmt.Errorf("update status: %w", err)
	}

	m.logger.Info("session status changed", "session_id", id, "from", sess.Status, "status", target)
	sess.Status = target
	m.broadcastStatus(id, target)
	return sess, true, nil
}

// MarkSummaryStatus moves the summary status along its sub-machine. Marking
// READY stores text and completes the session.
func (m *Manager) MarkSummaryStatus(ctx context.Context, id, status string, text *string) error {
	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("lock session %s: %w", id, err)
	}
	defer unlock()

	sess, err := m.store.GetSession(id)
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	return m.markSummaryLocked(sess, status, text)
}

func (m *Manager) markSummaryLocked(sess storage.Session, status string, text *string) error {
	if !CanTransitionSummary(sess.SummaryStatus, status) {
		return fmt.Errorf("%w: summary %s -> %s", ErrInvalidTransition, sess.SummaryStatus, status)
	}

	outer := ""
	if status == storage.SummaryReady {
		if text == nil {
			return invalid("summary", "is required when ready")
		}
		// A session failed while its summary ran keeps FAILED.
		if sess.Status != storage.StatusFailed {
			outer = storage.StatusCompleted
		}
	} else {
		text = nil
	}

	if err := m.store.UpdateSummary(sess.ID, status, text, outer); err != nil {
		return fmt.Errorf("update summary: %w", err)
	}

	if status == storage.SummaryReady {
		m.broadcastSummaryReady(sess.ID, *text)
		if outer != "" {
			m.broadcastStatus(sess.ID, outer)
		}
	}
	return nil
}

// RunSummary summarizes a session synchronously. RECORDING and PAUSED
// sessions are moved to PROCESSING first.
func (m *Manager) RunSummary(ctx context.Context, id string) (string, error) {
	return m.runSummary(ctx, id)
}

func (m *Manager) generateSummary(ctx context.Context, id string) {
	if _, err := m.runSummary(ctx, id); err != nil {
		m.logger.Warn("background summary failed", "session_id", id, "error", err)
	}
}

func (m *Manager) runSummary(ctx context.Context, id string) (string, error) {
	req, done, err := m.prepareSummary(ctx, id)
	if err != nil || done != "" {
		return done, err
	}

	sctx := ctx
	if m.summaryTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, m.summaryTimeout)
		defer cancel()
	}

	started := time.Now()
	text, sumErr := m.summarizer.Summarize(sctx, req)
	elapsed := time.Since(started)
	if sumErr == nil && strings.TrimSpace(text) == "" {
		sumErr = errors.New("empty summary")
	}

	// The result must be recorded even if the caller has gone away.
	unlock, err := m.locks.Lock(context.WithoutCancel(ctx), id)
	if err != nil {
		return "", fmt.Errorf("lock session %s: %w", id, err)
	}
	defer unlock()

	sess, err := m.store.GetSession(id)
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", id, err)
	}

	if sumErr != nil {
		m.metrics.RecordSummary("failed", elapsed)
		m.logger.Warn("summarization failed", "session_id", id, "error", sumErr)
		if err := m.markSummaryLocked(sess, storage.SummaryFailed, nil); err != nil {
			m.logger.Error("record summary failure", "session_id", id, "error", err)
		}
		m.broadcastSummaryFailed(id, sumErr.Error())
		return "", fmt.Errorf("%w: %w", ErrSummarizationFailed, sumErr)
	}

	text = strings.TrimSpace(text)
	if err := m.markSummaryLocked(sess, storage.SummaryReady, &text); err != nil {
		m.metrics.RecordSummary("failed", elapsed)
		m.logger.Error("record summary", "session_id", id, "error", err)
		if markErr := m.markSummaryLocked(sess, storage.SummaryFailed, nil); markErr == nil {
			m.broadcastSummaryFailed(id, err.Error())
		}
		return "", err
	}

	m.metrics.RecordSummary("ready", elapsed)
	m.logger.Info("summary ready", "session_id", id, "chars", len(text))
	m.export(id)
	return text, nil
}

// prepareSummary runs under the session token. It either returns a request
// for the summarizer or, for an empty transcript, the final summary text.
func (m *Manager) prepareSummary(ctx context.Context, id string) (summary.Request, string, error) {
	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return summary.Request{}, "", fmt.Errorf("lock session %s: %w", id, err)
	}
	defer unlock()

	sess, err := m.store.GetSession(id)
	if err != nil {
		return summary.Request{}, "", fmt.Errorf("load session %s: %w", id, err)
	}

	switch sess.Status {
	case storage.StatusRecording, storage.StatusPaused:
		if sess, _, err = m.transitionLocked(id, storage.StatusProcessing); err != nil {
			return summary.Request{}, "", err
		}
	case storage.StatusFailed:
		return summary.Request{}, "", fmt.Errorf("%w: cannot summarize a %s session", ErrInvalidTransition, sess.Status)
	}

	if sess.SummaryStatus == storage.SummaryRunning {
		return summary.Request{}, "", ErrSummaryInProgress
	}

	segments, err := m.store.GetSegments(id)
	if err != nil {
		return summary.Request{}, "", fmt.Errorf("load segments %s: %w", id, err)
	}

	transcript := summary.FormatTranscript(segments)
	if strings.TrimSpace(transcript) == "" {
		text := EmptyTranscriptSummary
		if err := m.store.UpdateSummary(id, storage.SummaryReady, &text, storage.StatusCompleted); err != nil {
			return summary.Request{}, "", fmt.Errorf("update summary: %w", err)
		}
		m.metrics.RecordSummary("empty", 0)
		m.broadcastSummaryReady(id, text)
		m.broadcastStatus(id, storage.StatusCompleted)
		m.export(id)
		return summary.Request{}, text, nil
	}

	// RUNNING is visible through Get only; no event is emitted for it.
	if err := m.markSummaryLocked(sess, storage.SummaryRunning, nil); err != nil {
		return summary.Request{}, "", err
	}

	return summary.Request{
		SessionID:  id,
		Transcript: summary.Truncate(transcript, m.maxTranscriptChars),
		Chunks:     len(segments),
	}, "", nil
}

func (m *Manager) export(id string) {
	if m.exporter == nil {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		sess, err := m.store.GetSession(id)
		if err != nil {
			m.logger.Warn("export: load session", "session_id", id, "error", err)
			return
		}
		segments, err := m.store.GetSegments(id)
		if err != nil {
			m.logger.Warn("export: load segments", "session_id", id, "error", err)
			return
		}
		if err := m.exporter.Export(ctx, sess, segments); err != nil {
			m.logger.Warn("export failed", "session_id", id, "error", err)
		}
	}()
}

// Wait blocks until background summaries and exports have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) broadcastStatus(id, status string) {
	if m.hub != nil {
		m.hub.BroadcastSessionStatus(id, status)
	}
}

func (m *Manager) broadcastSummaryReady(id, text string) {
	if m.hub != nil {
		m.hub.BroadcastSummaryReady(id, text)
	}
}

func (m *Manager) broadcastSummaryFailed(id, errMsg string) {
	if m.hub != nil {
		m.hub.BroadcastSummaryFailed(id, errMsg)
	}
}
