package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sjawhar/ghost-scribe/internal/audio"
	"github.com/sjawhar/ghost-scribe/internal/config"
	"github.com/sjawhar/ghost-scribe/internal/export"
	"github.com/sjawhar/ghost-scribe/internal/gdrive"
	"github.com/sjawhar/ghost-scribe/internal/llm"
	"github.com/sjawhar/ghost-scribe/internal/metrics"
	"github.com/sjawhar/ghost-scribe/internal/server"
	"github.com/sjawhar/ghost-scribe/internal/session"
	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/summary"
	"github.com/sjawhar/ghost-scribe/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "ghost-scribe.yaml", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ghost-scribe: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	for _, w := range warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer func() { _ = store.Close() }()

	m := metrics.New()
	hub := server.NewHub(m)

	transcriber, err := transcribe.New(transcribe.Options{
		Provider:        cfg.Transcription.Provider,
		APIKey:          cfg.APIKey(cfg.Transcription.Provider),
		Model:           cfg.Transcription.Model,
		Language:        cfg.Transcription.Language,
		PollInterval:    cfg.ParsedPollInterval(),
		MaxPollAttempts: cfg.Transcription.MaxPollAttempts,
	})
	if err != nil {
		return fmt.Errorf("transcriber init: %w", err)
	}

	summarizer := summary.New(
		cfg.Summarization.Model,
		cfg.APIKey(cfg.SummarizationProvider()),
		llm.WithMaxTokens(llm.DefaultMaxTokens),
	)

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithMetrics(m),
		session.WithContextWindow(cfg.Transcription.ContextWindow),
		session.WithListLimit(cfg.ListPageSize),
		session.WithMaxTranscriptChars(cfg.Summarization.MaxTranscriptChars),
		session.WithTranscriptionTimeout(cfg.ParsedTranscriptionTimeout()),
		session.WithSummaryTimeout(cfg.ParsedSummaryTimeout()),
		session.WithExporter(export.New(storage.NewWriter(cfg.ExportDir), newUploader(ctx, cfg, logger), logger)),
	}

	var archive *audio.Archive
	if cfg.AudioDir != "" {
		archive = audio.NewArchive(cfg.AudioDir)
		opts = append(opts, session.WithAudioArchive(archive))
	}

	manager := session.NewManager(store, transcriber, summarizer, hub, opts...)

	srvOpts := server.Options{
		ClientOrigin:    cfg.ClientOrigin,
		MaxMessageBytes: cfg.MaxMessageBytes,
		Metrics:         m,
		Logger:          logger,
	}
	if archive != nil {
		srvOpts.Audio = archive
	}
	handler, err := server.Handler(manager, hub, srvOpts)
	if err != nil {
		return fmt.Errorf("build http handler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, cfg.ListenAddr, handler, logger)
	})

	logger.Info("ghost-scribe started",
		"addr", cfg.ListenAddr,
		"transcription_provider", cfg.Transcription.Provider,
		"summarization_model", cfg.Summarization.Model,
	)

	err = g.Wait()
	logger.Info("ghost-scribe shutting down, waiting for background summaries")
	manager.Wait()
	return err
}

// newUploader returns a Drive uploader when a folder is configured. Any
// failure disables Drive export with a warning.
func newUploader(ctx context.Context, cfg config.Config, logger *slog.Logger) export.Uploader {
	if cfg.GDriveFolderID == "" {
		return nil
	}
	syncer, err := gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
	if err != nil {
		logger.Warn("gdrive export disabled", "error", err)
		return nil
	}
	return syncer
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
