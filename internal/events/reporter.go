package events

import (
	"strings"
	"sync"
)

// Reporter receives diagnostics from vault components. Components take a
// Reporter instead of writing to a process-wide logger.
type Reporter interface {
	Report(level LogLevel, msg string, fields Fields)
}

type discard struct{}

func (discard) Report(LogLevel, string, Fields) {}

// Discard drops every diagnostic.
var Discard Reporter = discard{}

// OrDiscard returns r, or Discard when r is nil.
func OrDiscard(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}

// Entry is one recorded diagnostic.
type Entry struct {
	Level   LogLevel
	Message string
	Fields  Fields
}

// Recorder keeps diagnostics in memory so tests can assert on them.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report implements Reporter.
func (r *Recorder) Report(level LogLevel, msg string, fields Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make(Fields, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	r.entries = append(r.entries, Entry{Level: level, Message: msg, Fields: copied})
}

// Entries returns a snapshot of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// AtLevel returns the recorded entries with the given level.
func (r *Recorder) AtLevel(level LogLevel) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether any entry at level mentions substr.
func (r *Recorder) Contains(level LogLevel, substr string) bool {
	for _, e := range r.AtLevel(level) {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
