package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Entry is one captured record. Level and message are stored under "level"
// and "message"; errors are stored as their message.
type Entry map[string]any

// recording is shared by a TestLogger and every child made with With, so
// concurrent folds append to the same slice.
type recording struct {
	mu      sync.Mutex
	level   Level
	entries []Entry
}

// TestLogger keeps records in memory for assertions.
type TestLogger struct {
	rec    *recording
	fields []any
}

// NewTestLogger returns a logger recording at level and above.
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	engine := evaluation.NewEngine(evaluation.WithLogger(logger))
//	...
//	logger.ContainsField(log.FoldKey, 3)
func NewTestLogger(level Level) *TestLogger {
	return &TestLogger{rec: &recording{level: level}}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, msg, fields) }

func (t *TestLogger) With(fields ...any) Logger {
	return &TestLogger{rec: t.rec, fields: append(append([]any(nil), t.fields...), fields...)}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	return level >= t.rec.level
}

func (t *TestLogger) record(level Level, msg string, fields []any) {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	if level < t.rec.level {
		return
	}
	e := Entry{"level": level.String(), "message": msg}
	for _, kv := range [][]any{t.fields, fields} {
		for i := 0; i+1 < len(kv); i += 2 {
			v := kv[i+1]
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			e[fmt.Sprint(kv[i])] = v
		}
	}
	t.rec.entries = append(t.rec.entries, e)
}

// Entries returns a copy of the captured records in order.
func (t *TestLogger) Entries() []Entry {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	return append([]Entry(nil), t.rec.entries...)
}

// ContainsMessage reports whether any record's message contains s.
func (t *TestLogger) ContainsMessage(s string) bool {
	for _, e := range t.Entries() {
		if strings.Contains(e["message"].(string), s) {
			return true
		}
	}
	return false
}

// ContainsField reports whether any record has key set to value.
func (t *TestLogger) ContainsField(key string, value any) bool {
	for _, e := range t.Entries() {
		if v, ok := e[key]; ok && reflect.DeepEqual(v, value) {
			return true
		}
	}
	return false
}

// TestLoggerProvider serves one TestLogger; named loggers add ComponentKey.
type TestLoggerProvider struct {
	logger *TestLogger
}

func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *TestLogger) {
	l := NewTestLogger(level)
	return &TestLoggerProvider{logger: l}, l
}

func (p *TestLoggerProvider) GetLogger() Logger { return p.logger }

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

func (p *TestLoggerProvider) SetLevel(level Level) {
	p.logger.rec.mu.Lock()
	defer p.logger.rec.mu.Unlock()
	p.logger.rec.level = level
}
