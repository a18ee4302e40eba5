package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/metrics"
	"github.com/sjawhar/ghost-scribe/internal/storage"
)

const clientBuffer = 64

// Hub routes events to the clients subscribed to a session. Each client is
// a buffered channel drained by its connection writer; a full buffer drops
// the event rather than stalling the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]map[string]struct{}
	topics  map[string]map[chan []byte]struct{}
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[chan []byte]map[string]struct{}),
		topics:  make(map[string]map[chan []byte]struct{}),
		metrics: m,
	}
}

func (h *Hub) Register() chan []byte {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = make(map[string]struct{})
	h.mu.Unlock()
	return ch
}

// Subscribe adds a registered client to a session topic. It is idempotent.
func (h *Hub) Subscribe(ch chan []byte, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[ch]
	if !ok {
		return
	}
	subs[sessionID] = struct{}{}

	topic, ok := h.topics[sessionID]
	if !ok {
		topic = make(map[chan []byte]struct{})
		h.topics[sessionID] = topic
	}
	topic[ch] = struct{}{}
}

// Unregister removes the client from every topic and closes its channel.
func (h *Hub) Unregister(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[ch]
	if !ok {
		return
	}
	for sessionID := range subs {
		topic := h.topics[sessionID]
		delete(topic, ch)
		if len(topic) == 0 {
			delete(h.topics, sessionID)
		}
	}
	delete(h.clients, ch)
	close(ch)
}

// Publish delivers msg to every subscriber of sessionID.
func (h *Hub) Publish(sessionID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.topics[sessionID] {
		h.deliver(ch, msg)
	}
}

// Send delivers msg to a single registered client.
func (h *Hub) Send(ch chan []byte, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[ch]; ok {
		h.deliver(ch, msg)
	}
}

func (h *Hub) deliver(ch chan []byte, msg []byte) {
	select {
	case ch <- msg:
	default:
		h.metrics.RecordDroppedEvent()
	}
}

func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[sessionID])
}

func (h *Hub) BroadcastSessionStatus(sessionID, status string) {
	h.publishEvent(sessionID, SessionStatusEvent{
		Event:     newEvent(EventSessionStatus, time.Now().UTC()),
		SessionID: sessionID,
		Status:    status,
	})
}

func (h *Hub) BroadcastTranscript(seg storage.Segment) {
	h.publishEvent(seg.SessionID, TranscriptUpdateEvent{
		Event:       newEvent(EventTranscriptUpdate, time.Now().UTC()),
		SessionID:   seg.SessionID,
		ChunkIndex:  seg.ChunkIndex,
		Text:        seg.Text,
		StartedAtMs: seg.StartedAtMs,
		EndedAtMs:   seg.EndedAtMs,
	})
}

func (h *Hub) BroadcastSummaryReady(sessionID, summary string) {
	h.publishEvent(sessionID, SummaryReadyEvent{
		Event:     newEvent(EventSummaryReady, time.Now().UTC()),
		SessionID: sessionID,
		Summary:   summary,
	})
}

func (h *Hub) BroadcastSummaryFailed(sessionID, errMsg string) {
	h.publishEvent(sessionID, SummaryFailedEvent{
		Event:     newEvent(EventSummaryFailed, time.Now().UTC()),
		SessionID: sessionID,
		Error:     errMsg,
	})
}

func (h *Hub) publishEvent(sessionID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("event marshal failed", "session_id", sessionID, "error", err)
		return
	}
	h.Publish(sessionID, payload)
}

func (h *Hub) sendEvent(ch chan []byte, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("event marshal failed", "error", err)
		return
	}
	h.Send(ch, payload)
}
