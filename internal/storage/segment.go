package storage

import (
	"fmt"
	"strings"
)

// Offset renders the segment's start offset as h:mm:ss (or m:ss under an
// hour). It returns "" when no start offset was recorded.
func (s Segment) Offset() string {
	if s.StartedAtMs == nil {
		return ""
	}
	ms := *s.StartedAtMs
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Line is the transcript form of the segment: "[m:ss] text" or bare text.
// Segments without text render as "".
func (s Segment) Line() string {
	text := strings.TrimSpace(s.Text)
	if text == "" {
		return ""
	}
	if ts := s.Offset(); ts != "" {
		return "[" + ts + "] " + text
	}
	return text
}
