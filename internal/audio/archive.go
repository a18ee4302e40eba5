package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ErrNotArchived is returned when no audio was stored for a chunk.
var ErrNotArchived = errors.New("chunk audio not archived")

// Archive stores raw chunk payloads as <dir>/<sessionID>/<chunkIndex>.<ext>.
// Payloads are kept as received; nothing is decoded or re-encoded.
type Archive struct {
	dir string
	mu  sync.Mutex
}

func NewArchive(dir string) *Archive {
	if dir == "" {
		dir = filepath.Join("data", "audio")
	}
	return &Archive{dir: dir}
}

// Save writes the chunk, replacing any earlier payload for the same index.
func (a *Archive) Save(sessionID string, chunkIndex int, mimeType string, data []byte) (string, error) {
	if err := checkSessionID(sessionID); err != nil {
		return "", err
	}
	if chunkIndex < 0 {
		return "", fmt.Errorf("invalid chunk index %d", chunkIndex)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	sessionDir := filepath.Join(a.dir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create session audio directory: %w", err)
	}

	// A re-sent chunk may arrive with a different container.
	stale, _ := filepath.Glob(filepath.Join(sessionDir, strconv.Itoa(chunkIndex)+".*"))
	for _, p := range stale {
		_ = os.Remove(p)
	}

	path := filepath.Join(sessionDir, fmt.Sprintf("%d.%s", chunkIndex, Extension(mimeType)))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write chunk audio: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename chunk audio: %w", err)
	}
	return path, nil
}

// Path locates the archived payload for a chunk.
func (a *Archive) Path(sessionID string, chunkIndex int) (string, error) {
	if err := checkSessionID(sessionID); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(a.dir, sessionID, strconv.Itoa(chunkIndex)+".*"))
	if err != nil {
		return "", fmt.Errorf("find chunk audio: %w", err)
	}
	for _, m := range matches {
		if !strings.HasSuffix(m, ".tmp") {
			return m, nil
		}
	}
	return "", fmt.Errorf("session %s chunk %d: %w", sessionID, chunkIndex, ErrNotArchived)
}

func checkSessionID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}
