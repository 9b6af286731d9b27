package cli

import (
	"strings"
	"sync"
)

// LogWriter implements io.Writer and captures log output for console display.
// It keeps the most recent lines and notifies via a channel. Safe for use as
// an slog handler sink while the console goroutine renders.
type LogWriter struct {
	mu    sync.Mutex
	lines []string
	max   int
	ch    chan string
}

// NewLogWriter creates a log writer keeping at most maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	if maxLines <= 0 {
		maxLines = 1
	}
	return &LogWriter{
		max: maxLines,
		ch:  make(chan string, 100),
	}
}

// Write implements io.Writer.
// Handles multi-line input by splitting on newlines.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	text := strings.TrimRight(string(p), "\n")
	lines := strings.Split(text, "\n")

	w.mu.Lock()
	for _, line := range lines {
		w.lines = append(w.lines, line)
		if len(w.lines) > w.max {
			w.lines = w.lines[len(w.lines)-w.max:]
		}
	}
	w.mu.Unlock()

	for _, line := range lines {
		// Non-blocking send to channel
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Lines returns a copy of the buffered lines, oldest first.
func (w *LogWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

// Channel returns the notification channel for new lines.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
