package summary

import (
	"fmt"
	"strings"

	"github.com/sjawhar/ghost-scribe/internal/storage"
)

// DefaultMaxTranscriptChars bounds the transcript sent to the model.
const DefaultMaxTranscriptChars = 500_000

// FormatTranscript renders segments in chunk order, one per paragraph.
// Segments are expected to be sorted by chunk index.
func FormatTranscript(segments []storage.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		if line := seg.Line(); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n\n")
}

// Truncate keeps the first 40% and the last 60% of max characters and
// replaces the middle with a marker naming how much was cut. Text no longer
// than max is returned unchanged.
func Truncate(text string, max int) string {
	if max <= 0 {
		max = DefaultMaxTranscriptChars
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	head := max * 4 / 10
	tail := max * 6 / 10
	omitted := runes[head : len(runes)-tail]

	var b strings.Builder
	b.Grow(len(text))
	b.WriteString(string(runes[:head]))
	b.WriteString(Marker(len(string(omitted))))
	b.WriteString(string(runes[len(runes)-tail:]))
	return b.String()
}

// Marker is the text inserted in place of omitted transcript bytes.
func Marker(omittedBytes int) string {
	kb := (omittedBytes + 1023) / 1024
	return fmt.Sprintf("\n\n[... %d KB of transcript omitted ...]\n\n", kb)
}
