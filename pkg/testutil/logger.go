package testutil

import (
	"context"
	"sync"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
)

// LogEntry is one entry captured by RecordingLogger.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// RecordingLogger captures entries for assertions. Children created with With and
// WithContext write into the parent's buffer.
type RecordingLogger struct {
	mu     *sync.Mutex
	logs   *[]LogEntry
	fields map[string]any
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{mu: &sync.Mutex{}, logs: &[]LogEntry{}, fields: map[string]any{}}
}

func (m *RecordingLogger) Debug(msg string, args ...any) { m.record("debug", msg, args) }
func (m *RecordingLogger) Info(msg string, args ...any)  { m.record("info", msg, args) }
func (m *RecordingLogger) Warn(msg string, args ...any)  { m.record("warn", msg, args) }
func (m *RecordingLogger) Error(msg string, args ...any) { m.record("error", msg, args) }

func (m *RecordingLogger) With(args ...any) logger.Logger {
	fields := make(map[string]any, len(m.fields))
	for k, v := range m.fields {
		fields[k] = v
	}
	for k, v := range argsToMap(args) {
		fields[k] = v
	}
	return &RecordingLogger{mu: m.mu, logs: m.logs, fields: fields}
}

func (m *RecordingLogger) WithContext(ctx context.Context) logger.Logger {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return m.With("request_id", id)
	}
	return m
}

// Entries returns a copy of everything recorded so far.
func (m *RecordingLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), (*m.logs)...)
}

// Find returns the first entry with msg.
func (m *RecordingLogger) Find(msg string) (LogEntry, bool) {
	for _, e := range m.Entries() {
		if e.Msg == msg {
			return e, true
		}
	}
	return LogEntry{}, false
}

func (m *RecordingLogger) record(level, msg string, args []any) {
	fields := make(map[string]any, len(m.fields)+len(args)/2)
	for k, v := range m.fields {
		fields[k] = v
	}
	for k, v := range argsToMap(args) {
		fields[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.logs = append(*m.logs, LogEntry{Level: level, Msg: msg, Fields: fields})
}

func argsToMap(args []any) map[string]any {
	fields := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
