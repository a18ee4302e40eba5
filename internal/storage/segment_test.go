package storage

import "testing"

func TestSegmentLine(t *testing.T) {
	tests := []struct {
		name    string
		started *int64
		want    string
	}{
		{name: "no offset", started: nil, want: "hello world"},
		{name: "seconds", started: int64Ptr(5_400), want: "[0:05] hello world"},
		{name: "minutes", started: int64Ptr(754_000), want: "[12:34] hello world"},
		{name: "hours", started: int64Ptr(3_723_000), want: "[01:02:03] hello world"},
		{name: "negative clamps", started: int64Ptr(-10), want: "[0:00] hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := Segment{Text: " hello world ", StartedAtMs: tt.started}
			if got := seg.Line(); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSegmentLineEmptyText(t *testing.T) {
	seg := Segment{Text: "  ", StartedAtMs: int64Ptr(1000)}
	if got := seg.Line(); got != "" {
		t.Fatalf("expected empty line, got %q", got)
	}
}
