// Package eventlog keeps a bounded in-memory log of monitoring events
// for the TUI activity view, mirroring every entry to the structured
// logger.
package eventlog

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// ringSize caps how many events are retained.
const ringSize = 1000

// Severity classifies an event for display.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the human-readable name for a Severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one dated log line.
type Event struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// Log is a concurrency-safe bounded event ring. The TUI reads it from
// the render goroutine while the monitor loop appends.
type Log struct {
	logger *slog.Logger

	mu     sync.Mutex
	events []Event
	now    func() time.Time
}

// New creates an event log mirroring to the given structured logger.
// If logger is nil, a no-op logger is used.
func New(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Log{
		logger: logger,
		now:    time.Now,
	}
}

// Info records an informational event.
func (l *Log) Info(msg string) {
	l.append(SeverityInfo, msg)
	l.logger.Info(msg)
}

// Warn records a warning event.
func (l *Log) Warn(msg string) {
	l.append(SeverityWarning, msg)
	l.logger.Warn(msg)
}

// Error records an error event.
func (l *Log) Error(msg string) {
	l.append(SeverityError, msg)
	l.logger.Error(msg)
}

func (l *Log) append(sev Severity, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{Time: l.now(), Severity: sev, Message: msg})
	if len(l.events) > ringSize {
		l.events = l.events[len(l.events)-ringSize:]
	}
}

// Recent returns up to n events, newest first.
func (l *Log) Recent(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = l.events[len(l.events)-1-i]
	}
	return out
}

// Len returns how many events are currently retained.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
