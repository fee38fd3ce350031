package logger

import (
	"context"
	"sync"
)

// QueueConfig configures Queued.
type QueueConfig struct {
	Enabled bool
	Size    int
	// DropWhenFull discards entries instead of blocking the caller.
	DropWhenFull bool
}

type entry struct {
	to   Logger
	emit func(Logger, string, ...any)
	msg  string
	args []any
}

type queue struct {
	ch     chan entry
	drop   bool
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// QueuedLogger hands entries to a single background writer so request handlers never
// wait on the log sink.
type QueuedLogger struct {
	base Logger
	q    *queue
}

// Queued wraps base when cfg.Enabled, otherwise it returns base unchanged.
func Queued(base Logger, cfg QueueConfig) Logger {
	if !cfg.Enabled {
		return base
	}
	size := cfg.Size
	if size <= 0 {
		size = 1024
	}
	q := &queue{ch: make(chan entry, size), drop: cfg.DropWhenFull, done: make(chan struct{})}
	go func() {
		defer close(q.done)
		for e := range q.ch {
			e.emit(e.to, e.msg, e.args...)
		}
	}()
	return &QueuedLogger{base: base, q: q}
}

func (l *QueuedLogger) Debug(msg string, args ...any) { l.push(Logger.Debug, msg, args) }
func (l *QueuedLogger) Info(msg string, args ...any)  { l.push(Logger.Info, msg, args) }
func (l *QueuedLogger) Warn(msg string, args ...any)  { l.push(Logger.Warn, msg, args) }
func (l *QueuedLogger) Error(msg string, args ...any) { l.push(Logger.Error, msg, args) }

func (l *QueuedLogger) With(args ...any) Logger {
	return &QueuedLogger{base: l.base.With(args...), q: l.q}
}

func (l *QueuedLogger) WithContext(ctx context.Context) Logger {
	return &QueuedLogger{base: l.base.WithContext(ctx), q: l.q}
}

// Close flushes pending entries and stops the writer. Later entries are written
// synchronously.
func (l *QueuedLogger) Close() {
	l.q.mu.Lock()
	if !l.q.closed {
		l.q.closed = true
		close(l.q.ch)
	}
	l.q.mu.Unlock()
	<-l.q.done
}

func (l *QueuedLogger) push(emit func(Logger, string, ...any), msg string, args []any) {
	l.q.mu.RLock()
	defer l.q.mu.RUnlock()
	if l.q.closed {
		emit(l.base, msg, args...)
		return
	}
	e := entry{to: l.base, emit: emit, msg: msg, args: args}
	if l.q.drop {
		select {
		case l.q.ch <- e:
		default:
		}
		return
	}
	l.q.ch <- e
}
