package session

import "github.com/sjawhar/ghost-scribe/internal/storage"

var transitions = map[string][]string{
	storage.StatusRecording:  {storage.StatusPaused, storage.StatusProcessing},
	storage.StatusPaused:     {storage.StatusRecording, storage.StatusProcessing},
	storage.StatusProcessing: {storage.StatusCompleted, storage.StatusFailed},
}

// CanTransition reports whether a session may move from one status to
// another. COMPLETED and FAILED are terminal.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return status == storage.StatusCompleted || status == storage.StatusFailed
}

func validStatus(status string) bool {
	switch status {
	case storage.StatusRecording, storage.StatusPaused, storage.StatusProcessing,
		storage.StatusCompleted, storage.StatusFailed:
		return true
	}
	return false
}

var summaryTransitions = map[string][]string{
	storage.SummaryNone:    {storage.SummaryRunning},
	storage.SummaryRunning: {storage.SummaryReady, storage.SummaryFailed},
	storage.SummaryReady:   {storage.SummaryRunning},
	storage.SummaryFailed:  {storage.SummaryRunning},
}

// CanTransitionSummary reports whether the summary status may move from one
// value to another. READY is only reachable from RUNNING; the empty
// transcript short-circuit bypasses this table.
func CanTransitionSummary(from, to string) bool {
	for _, next := range summaryTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
