package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sjawhar/ghost-scribe/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

var errNilService = errors.New("server: nil session service")

type Options struct {
	// ClientOrigin restricts browser origins. Empty or "*" allows any.
	ClientOrigin    string
	MaxMessageBytes int64
	Metrics         *metrics.Metrics
	Audio           ChunkAudio
	Logger          *slog.Logger
}

// Handler builds the HTTP surface: REST under /api, the websocket gateway
// at /ws, /health and /metrics.
func Handler(svc SessionService, hub *Hub, opts Options) (http.Handler, error) {
	if svc == nil {
		return nil, errNilService
	}
	if hub == nil {
		hub = NewHub(opts.Metrics)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	registerWSRoute(mux, &gateway{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(opts.ClientOrigin),
		},
		maxMessageBytes: opts.MaxMessageBytes,
		metrics:         opts.Metrics,
		logger:          logger,
	})
	registerAPIRoutes(mux, svc, opts.Audio, opts.MaxMessageBytes)
	mux.Handle("GET /metrics", opts.Metrics.Handler())

	return withCORS(opts.ClientOrigin, withMetrics(opts.Metrics, mux)), nil
}

// Serve runs h on addr until ctx is cancelled, then drains connections.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func withCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqOrigin := r.Header.Get("Origin")
		if reqOrigin != "" && originAllowed(origin, reqOrigin) {
			w.Header().Set("Access-Control-Allow-Origin", reqOrigin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for /ws.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func withMetrics(m *metrics.Metrics, mux *http.ServeMux) http.Handler {
	if m == nil {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		if pattern == "GET /ws" {
			mux.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		if pattern == "" {
			pattern = "unmatched"
		}
		m.RecordHTTPRequest(pattern, strconv.Itoa(rec.status))
	})
}
