// Package export publishes finished sessions as Markdown files and,
// optionally, as Google Docs.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sjawhar/ghost-scribe/internal/storage"
)

// Uploader mirrors a local file to a remote document keyed by session id.
type Uploader interface {
	Upload(ctx context.Context, key, name, localPath string) error
}

type Exporter struct {
	writer   *storage.Writer
	uploader Uploader
	logger   *slog.Logger
}

// New returns an Exporter. uploader may be nil.
func New(writer *storage.Writer, uploader Uploader, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{writer: writer, uploader: uploader, logger: logger}
}

func (e *Exporter) Export(ctx context.Context, sess storage.Session, segments []storage.Segment) error {
	path, err := e.writer.WriteSession(sess, segments)
	if err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	e.logger.Info("session exported", "session_id", sess.ID, "path", path)

	if e.uploader == nil {
		return nil
	}
	if err := e.uploader.Upload(ctx, sess.ID, docName(sess), path); err != nil {
		return fmt.Errorf("upload transcript: %w", err)
	}
	return nil
}

func docName(sess storage.Session) string {
	title := strings.TrimSpace(sess.Title)
	if title == "" {
		title = sess.ID
	}
	return fmt.Sprintf("ghost-scribe %s %s", sess.CreatedAt.UTC().Format("2006-01-02"), title)
}
