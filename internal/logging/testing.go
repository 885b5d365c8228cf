package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger whose entries are kept in memory for assertions.
// Every level, including Trace, is recorded.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{Logger: New(zap.New(core)), logs: logs}
}

// All returns every recorded entry in order.
func (t *TestLogger) All() []observer.LoggedEntry { return t.logs.All() }

// FilterMessage narrows the recorded entries to one exact message.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.logs.FilterMessage(msg)
}

// Reset drops everything recorded so far.
func (t *TestLogger) Reset() { _ = t.logs.TakeAll() }

// AssertLogged fails tb unless an entry at level has a message containing
// substr.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, substr string) {
	tb.Helper()
	found := t.logs.Filter(func(e observer.LoggedEntry) bool {
		return e.Level == level && strings.Contains(e.Message, substr)
	})
	if found.Len() == 0 {
		tb.Errorf("no %s entry containing %q; recorded: %s", level, substr, t.summary())
	}
}

// AssertField fails tb unless some entry with message msg carries key=want.
// Integer fields read back as int64.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want any) {
	tb.Helper()
	entries := t.logs.FilterMessage(msg).All()
	if len(entries) == 0 {
		tb.Errorf("no entry with message %q; recorded: %s", msg, t.summary())
		return
	}
	var seen []any
	for _, e := range entries {
		got, ok := e.ContextMap()[key]
		if ok && reflect.DeepEqual(got, want) {
			return
		}
		seen = append(seen, got)
	}
	tb.Errorf("%q: field %s=%#v not found, saw %v", msg, key, want, seen)
}

func (t *TestLogger) summary() string {
	var b strings.Builder
	for i, e := range t.logs.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Level.String())
		b.WriteByte(':')
		b.WriteString(e.Message)
	}
	return "[" + b.String() + "]"
}
