package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewZapLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		want  []string
	}{
		{name: "debug", level: DebugLevel, want: []string{"d", "i", "w", "e"}},
		{name: "info", level: InfoLevel, want: []string{"i", "w", "e"}},
		{name: "warn", level: WarnLevel, want: []string{"w", "e"}},
		{name: "error", level: ErrorLevel, want: []string{"e"}},
		{name: "unknown falls back to info", level: "loud", want: []string{"i", "w", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := NewZapLogger(Config{Level: tt.level, Format: JSONFormat, Output: &buf})
			if err != nil {
				t.Fatalf("NewZapLogger() error = %v", err)
			}
			log.Debug("d")
			log.Info("i")
			log.Warn("w")
			log.Error("e")

			lines := decodeLines(t, &buf)
			if len(lines) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(lines), len(tt.want))
			}
			for i, msg := range tt.want {
				if lines[i]["message"] != msg {
					t.Errorf("entry %d message = %v, want %s", i, lines[i]["message"], msg)
				}
			}
		})
	}
}

func TestNewZapLogger_RejectsUnknownFormat(t *testing.T) {
	if _, err := NewZapLogger(Config{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestZapLogger_FieldsAndWith(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewZapLogger(Config{Level: InfoLevel, Output: &buf, Fields: map[string]string{"service": "kaminari"}})
	if err != nil {
		t.Fatal(err)
	}
	log.With("collection", "User").Info("fetched", "count", 3)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d entries", len(lines))
	}
	got := lines[0]
	if got["service"] != "kaminari" || got["collection"] != "User" || got["count"] != float64(3) {
		t.Errorf("unexpected fields: %v", got)
	}
}

func TestZapLogger_WithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log, _ := NewZapLogger(Config{Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	log.WithContext(ctx).Info("with id")
	log.WithContext(context.Background()).Info("without id")

	lines := decodeLines(t, &buf)
	if lines[0]["request_id"] != "req-42" {
		t.Errorf("request_id = %v", lines[0]["request_id"])
	}
	if _, ok := lines[1]["request_id"]; ok {
		t.Error("unexpected request_id on entry without one")
	}
}

func TestRequestIDFromContext_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is tolerated on purpose
	if id := RequestIDFromContext(nil); id != "" {
		t.Errorf("got %q", id)
	}
}

func TestNewNop_DiscardsEverything(t *testing.T) {
	log := NewNop()
	log.Error("dropped", "k", "v")
	if log.WithContext(context.Background()) == nil {
		t.Fatal("WithContext returned nil")
	}
}

func TestParseLogLevelAndFormat(t *testing.T) {
	for in, want := range map[string]LogLevel{"debug": DebugLevel, "INFO": InfoLevel, "warning": WarnLevel, "error": ErrorLevel} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Error("expected error for trace")
	}
	for in, want := range map[string]LogFormat{"json": JSONFormat, "console": TextFormat, "text": TextFormat} {
		got, err := ParseLogFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseLogFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) add(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recorder) Debug(msg string, _ ...any)         { r.add(msg) }
func (r *recorder) Info(msg string, _ ...any)          { r.add(msg) }
func (r *recorder) Warn(msg string, _ ...any)          { r.add(msg) }
func (r *recorder) Error(msg string, _ ...any)         { r.add(msg) }
func (r *recorder) With(...any) Logger                 { return r }
func (r *recorder) WithContext(context.Context) Logger { return r }

func TestQueued_DisabledReturnsBase(t *testing.T) {
	base := &recorder{}
	if got := Queued(base, QueueConfig{}); got != base {
		t.Fatal("expected base logger when disabled")
	}
}

func TestQueued_FlushesOnClose(t *testing.T) {
	base := &recorder{}
	log := Queued(base, QueueConfig{Enabled: true, Size: 4})
	q, ok := log.(*QueuedLogger)
	if !ok {
		t.Fatalf("got %T", log)
	}
	for _, m := range []string{"a", "b", "c", "d", "e", "f"} {
		log.Info(m)
	}
	q.Close()
	log.Warn("after close")

	base.mu.Lock()
	defer base.mu.Unlock()
	want := []string{"a", "b", "c", "d", "e", "f", "after close"}
	if strings.Join(base.msgs, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", base.msgs, want)
	}
}
