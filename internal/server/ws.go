package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sjawhar/ghost-scribe/internal/metrics"
	"github.com/sjawhar/ghost-scribe/internal/session"
	"github.com/sjawhar/ghost-scribe/internal/storage"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = pongWait * 9 / 10
)

type gateway struct {
	svc             SessionService
	hub             *Hub
	upgrader        websocket.Upgrader
	maxMessageBytes int64
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

func registerWSRoute(mux *http.ServeMux, g *gateway) {
	mux.HandleFunc("GET /ws", g.serve)
}

func (g *gateway) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	g.metrics.ClientConnected()
	defer g.metrics.ClientDisconnected()

	if g.maxMessageBytes > 0 {
		conn.SetReadLimit(g.maxMessageBytes)
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ch := g.hub.Register()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		g.writeLoop(conn, ch)
	}()

	g.hub.sendEvent(ch, ConnectionEvent{
		Event:     newEvent(EventConnection, time.Now().UTC()),
		Connected: true,
	})

	// Handlers outlive the socket so that a queued chunk is still stored
	// after the client goes away.
	ctx := context.WithoutCancel(r.Context())
	queues := newSessionQueues(ctx, g, ch)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Info("ws read ended", "error", err)
			}
			break
		}
		g.dispatch(queues, ch, data)
	}

	queues.close()
	g.hub.Unregister(ch)
	<-writerDone
}

// sessionQueues serializes the session-scoped messages of one connection.
// Each session gets a FIFO worker, so a stop sent after a chunk is applied
// after that chunk while other sessions proceed independently. Only the
// read loop touches the map.
type sessionQueues struct {
	ctx     context.Context
	g       *gateway
	ch      chan []byte
	queues  map[string]chan clientMessage
	workers sync.WaitGroup
}

const sessionQueueSize = 64

func newSessionQueues(ctx context.Context, g *gateway, ch chan []byte) *sessionQueues {
	return &sessionQueues{ctx: ctx, g: g, ch: ch, queues: make(map[string]chan clientMessage)}
}

// enqueue blocks when the session's queue is full.
func (q *sessionQueues) enqueue(id string, msg clientMessage) {
	jobs, ok := q.queues[id]
	if !ok {
		jobs = make(chan clientMessage, sessionQueueSize)
		q.queues[id] = jobs
		q.workers.Add(1)
		go func() {
			defer q.workers.Done()
			for m := range jobs {
				q.g.handleSessionMessage(q.ctx, q.ch, id, m)
			}
		}()
	}
	jobs <- msg
}

// close lets every worker finish its backlog and waits for them.
func (q *sessionQueues) close() {
	for id, jobs := range q.queues {
		close(jobs)
		delete(q.queues, id)
	}
	q.workers.Wait()
}

func (g *gateway) writeLoop(conn *websocket.Conn, ch chan []byte) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				g.drain(ch)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.drain(ch)
				return
			}
		}
	}
}

// drain discards events until the hub closes ch.
func (g *gateway) drain(ch chan []byte) {
	for range ch {
	}
}

func (g *gateway) dispatch(queues *sessionQueues, ch chan []byte, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		g.sendError(ch, "", &session.ValidationError{Field: "payload", Reason: "malformed JSON"})
		return
	}

	switch msg.Type {
	case MessageSessionInit:
		g.handleInit(ch, msg)
	case MessageSessionJoin:
		g.handleJoin(ch, msg)
	case MessageAudioChunk, MessageSessionPause, MessageSessionResume, MessageSessionStop:
		id, ok := g.requireSessionID(ch, msg)
		if !ok {
			return
		}
		g.hub.Subscribe(ch, id)
		queues.enqueue(id, msg)
	default:
		g.sendError(ch, msg.SessionID, &session.ValidationError{Field: "type", Reason: "unknown message type " + quote(msg.Type)})
	}
}

func (g *gateway) handleSessionMessage(ctx context.Context, ch chan []byte, id string, msg clientMessage) {
	switch msg.Type {
	case MessageAudioChunk:
		g.handleChunk(ctx, ch, id, msg)
	case MessageSessionPause:
		g.handleControl(ctx, ch, id, g.svc.Pause)
	case MessageSessionResume:
		g.handleControl(ctx, ch, id, g.svc.Resume)
	case MessageSessionStop:
		g.handleControl(ctx, ch, id, g.svc.Stop)
	}
}

func (g *gateway) handleInit(ch chan []byte, msg clientMessage) {
	sess, err := g.svc.Create(msg.Title, msg.Mode)
	if err != nil {
		g.sendError(ch, "", err)
		return
	}

	g.hub.Subscribe(ch, sess.ID)
	now := time.Now().UTC()
	g.hub.sendEvent(ch, SessionCreatedEvent{Event: newEvent(EventSessionCreated, now), SessionID: sess.ID})
	g.hub.sendEvent(ch, SessionStatusEvent{Event: newEvent(EventSessionStatus, now), SessionID: sess.ID, Status: sess.Status})
}

func (g *gateway) handleJoin(ch chan []byte, msg clientMessage) {
	id, ok := g.requireSessionID(ch, msg)
	if !ok {
		return
	}

	detail, err := g.svc.Get(id)
	if err != nil {
		g.sendError(ch, id, err)
		return
	}

	g.hub.Subscribe(ch, id)
	g.hub.sendEvent(ch, SessionStatusEvent{
		Event:     newEvent(EventSessionStatus, time.Now().UTC()),
		SessionID: id,
		Status:    detail.Session.Status,
	})
}

func (g *gateway) handleChunk(ctx context.Context, ch chan []byte, id string, msg clientMessage) {
	if msg.ChunkIndex == nil {
		g.sendError(ch, id, &session.ValidationError{Field: "chunkIndex", Reason: "is required"})
		return
	}
	audio, err := base64.StdEncoding.DecodeString(strings.TrimSpace(msg.AudioBase64))
	if err != nil {
		g.sendError(ch, id, &session.ValidationError{Field: "audioBase64", Reason: "is not valid base64"})
		return
	}

	_, err = g.svc.Ingest(ctx, session.Chunk{
		SessionID:   id,
		ChunkIndex:  *msg.ChunkIndex,
		MimeType:    msg.MimeType,
		Audio:       audio,
		DurationMs:  msg.DurationMs,
		StartedAtMs: msg.StartedAtMs,
		EndedAtMs:   msg.EndedAtMs,
	})
	if err != nil {
		g.sendError(ch, id, err)
	}
}

func (g *gateway) handleControl(ctx context.Context, ch chan []byte, id string, op func(context.Context, string) (storage.Session, error)) {
	if _, err := op(ctx, id); err != nil {
		g.sendError(ch, id, err)
	}
}

func (g *gateway) requireSessionID(ch chan []byte, msg clientMessage) (string, bool) {
	id := strings.TrimSpace(msg.SessionID)
	if id == "" {
		g.sendError(ch, "", &session.ValidationError{Field: "sessionId", Reason: "is required"})
		return "", false
	}
	return id, true
}

func (g *gateway) sendError(ch chan []byte, sessionID string, err error) {
	code, _ := classify(err)
	if code == CodeInternal {
		g.logger.Error("session event failed", "session_id", sessionID, "error", err)
	}
	g.hub.sendEvent(ch, SessionErrorEvent{
		Event:     newEvent(EventSessionError, time.Now().UTC()),
		SessionID: sessionID,
		Error:     publicMessage(code, err),
		Code:      code,
	})
}

func quote(s string) string {
	return `"` + s + `"`
}

func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || originAllowed(allowed, origin)
	}
}

func originAllowed(allowed, origin string) bool {
	if allowed == "" || allowed == "*" {
		return true
	}
	return strings.EqualFold(strings.TrimRight(allowed, "/"), strings.TrimRight(origin, "/"))
}
