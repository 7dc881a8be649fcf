// Package testlog records log output so tests can assert on it.
package testlog

import (
	"sync"

	"courier-dispatch/internal/logx"
)

// Entry is a recorded log line.
type Entry struct {
	Level  string
	Msg    string
	Fields []logx.Field
}

// Field returns the value of the first field with the given key.
func (e Entry) Field(key string) (any, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Recorder records log entries.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns a new Recorder.
func New() *Recorder { return &Recorder{} }

// Logger returns a logger writing into the recorder.
func (r *Recorder) Logger() logx.Logger {
	return bound{r: r}
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// WithEvent returns entries carrying event=name.
func (r *Recorder) WithEvent(name string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if v, ok := e.Field("event"); ok && v == name {
			out = append(out, e)
		}
	}
	return out
}

// Level returns entries logged at the given level.
func (r *Recorder) Level(level string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) add(level, msg string, fields []logx.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]logx.Field(nil), fields...)
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Fields: cp})
}

type bound struct {
	r    *Recorder
	base []logx.Field
}

func (b bound) Debug(msg string, f ...logx.Field) { b.r.add("debug", msg, join(b.base, f)) }
func (b bound) Info(msg string, f ...logx.Field)  { b.r.add("info", msg, join(b.base, f)) }
func (b bound) Warn(msg string, f ...logx.Field)  { b.r.add("warn", msg, join(b.base, f)) }
func (b bound) Error(msg string, f ...logx.Field) { b.r.add("error", msg, join(b.base, f)) }

func (b bound) With(f ...logx.Field) logx.Logger {
	return bound{r: b.r, base: join(b.base, f)}
}

func (b bound) Sync() error { return nil }

func join(base, extra []logx.Field) []logx.Field {
	out := make([]logx.Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

var _ logx.Logger = bound{}
