// Package log holds logger adapters used inside the module.
package log

import (
	"sync"

	"github.com/bft-labs/sheetshot/internal/ports"
)

// Entry is one recorded log call.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

// Recorder implements ports.Logger by keeping every entry in memory.
// It is safe for concurrent use; derived loggers share the same buffer.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	base    []ports.Field
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) Debug(msg string, fields ...ports.Field) { r.add("debug", msg, fields) }
func (r *Recorder) Info(msg string, fields ...ports.Field)  { r.add("info", msg, fields) }
func (r *Recorder) Warn(msg string, fields ...ports.Field)  { r.add("warn", msg, fields) }
func (r *Recorder) Error(msg string, fields ...ports.Field) { r.add("error", msg, fields) }

// With returns a recorder that stamps fields on every entry.
func (r *Recorder) With(fields ...ports.Field) ports.Logger {
	base := append(append([]ports.Field{}, r.base...), fields...)
	return &Recorder{mu: r.mu, entries: r.entries, base: base}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), (*r.entries)...)
}

// Count returns how many entries were recorded at level with msg.
func (r *Recorder) Count(level, msg string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level && e.Msg == msg {
			n++
		}
	}
	return n
}

func (r *Recorder) add(level, msg string, fields []ports.Field) {
	m := make(map[string]interface{}, len(r.base)+len(fields))
	for _, f := range r.base {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	r.mu.Lock()
	*r.entries = append(*r.entries, Entry{Level: level, Msg: msg, Fields: m})
	r.mu.Unlock()
}
