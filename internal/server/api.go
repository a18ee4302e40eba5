package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/audio"
	"github.com/sjawhar/ghost-scribe/internal/session"
	"github.com/sjawhar/ghost-scribe/internal/storage"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SessionService is the slice of the session manager the transport uses.
type SessionService interface {
	Create(title, mode string) (storage.Session, error)
	Get(id string) (session.Detail, error)
	List(limit int) ([]storage.Session, error)
	Ingest(ctx context.Context, c session.Chunk) (storage.Segment, error)
	Pause(ctx context.Context, id string) (storage.Session, error)
	Resume(ctx context.Context, id string) (storage.Session, error)
	Stop(ctx context.Context, id string) (storage.Session, error)
	RunSummary(ctx context.Context, id string) (string, error)
}

// ChunkAudio locates archived chunk payloads.
type ChunkAudio interface {
	Path(sessionID string, chunkIndex int) (string, error)
}

type createSessionRequest struct {
	Title string `json:"title"`
	Mode  string `json:"mode"`
}

type summaryResponse struct {
	SessionID string `json:"sessionId"`
	Summary   string `json:"summary"`
}

func registerAPIRoutes(mux *http.ServeMux, svc SessionService, chunks ChunkAudio, maxBody int64) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if maxBody > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
			return
		}

		sess, err := svc.Create(req.Title, req.Mode)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, CodeValidation, "invalid limit")
				return
			}
			limit = n
		}

		sessions, err := svc.List(limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if sessions == nil {
			sessions = []storage.Session{}
		}
		writeJSON(w, http.StatusOK, sessions)
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !validSessionID(id) {
			writeJSONError(w, http.StatusBadRequest, CodeValidation, "invalid session id")
			return
		}

		detail, err := svc.Get(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	})

	mux.HandleFunc("POST /api/sessions/{id}/summary", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !validSessionID(id) {
			writeJSONError(w, http.StatusBadRequest, CodeValidation, "invalid session id")
			return
		}

		// A client that disconnects mid-request must not fail the summary.
		text, err := svc.RunSummary(context.WithoutCancel(r.Context()), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summaryResponse{SessionID: id, Summary: text})
	})

	mux.HandleFunc("GET /api/sessions/{id}/chunks/{index}/audio", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !validSessionID(id) {
			writeJSONError(w, http.StatusBadRequest, CodeValidation, "invalid session id")
			return
		}
		idx, err := strconv.Atoi(r.PathValue("index"))
		if err != nil || idx < 0 {
			writeJSONError(w, http.StatusBadRequest, CodeValidation, "invalid chunk index")
			return
		}
		if chunks == nil {
			writeJSONError(w, http.StatusNotFound, CodeNotFound, "audio archive disabled")
			return
		}

		path, err := chunks.Path(id, idx)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, CodeNotFound, "audio not available")
			return
		}

		f, err := os.Open(path)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, CodeNotFound, "audio file not found")
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, CodeInternal, "stat audio")
			return
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Type", audio.ContentType(ext))
		http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
	})
}

func validSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func writeServiceError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	writeJSONError(w, status, code, publicMessage(code, err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
