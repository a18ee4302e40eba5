package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Writer exports finished sessions as Markdown files grouped by creation date.
type Writer struct {
	dir string
	mu  sync.Mutex
}

func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = filepath.Join("data", "transcripts")
	}
	return &Writer{dir: dir}
}

// WriteSession renders the session and its segments, replacing any earlier
// export of the same session, and returns the file path.
func (w *Writer) WriteSession(sess Session, segments []Segment) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dayDir := filepath.Join(w.dir, sess.CreatedAt.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dayDir, err)
	}

	path := filepath.Join(dayDir, sess.ID+".md")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(RenderMarkdown(sess, segments)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename %s: %w", tmp, err)
	}

	return path, nil
}

func RenderMarkdown(sess Session, segments []Segment) string {
	var b strings.Builder
	title := strings.TrimSpace(sess.Title)
	if title == "" {
		title = sess.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Session: `%s`\n", sess.ID)
	fmt.Fprintf(&b, "- Mode: %s\n", sess.Mode)
	fmt.Fprintf(&b, "- Recorded: %s\n\n", sess.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))

	if sess.Summary != nil {
		b.WriteString(strings.TrimSpace(*sess.Summary))
		b.WriteString("\n\n")
	}

	b.WriteString("## Transcript\n\n")
	for _, seg := range segments {
		line := seg.Line()
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n\n")
	}

	return b.String()
}
