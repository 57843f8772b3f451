// Package vendorlog captures raw vendor request/response traffic for one
// pipeline stage so it can be persisted alongside the task record for audit.
package vendorlog

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Direction tags whether an entry is outbound or inbound.
type Direction string

const (
	DirRequest  Direction = "request"
	DirResponse Direction = "response"
)

// Entry is one captured exchange fragment.
type Entry struct {
	Time      time.Time `json:"time"`
	Direction Direction `json:"direction"`
	Note      string    `json:"note"`
	Body      string    `json:"body,omitempty"`
}

// Recorder accumulates entries for one stage of one task.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one entry. Body is truncated to keep log files bounded.
func (r *Recorder) Record(dir Direction, note string, body []byte) {
	if r == nil {
		return
	}
	b := string(body)
	if len(b) > 64*1024 {
		b = b[:64*1024] + "...(truncated)"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{
		Time:      time.Now().UTC(),
		Direction: dir,
		Note:      note,
		Body:      b,
	})
}

// Entries returns a copy of the captured entries.
func (r *Recorder) Entries() []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// String renders the log in the line format persisted under logs/.
func (r *Recorder) String() string {
	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, e := range r.entries {
		fmt.Fprintf(&sb, "[%s] %s %s\n", e.Time.Format(time.RFC3339Nano), e.Direction, e.Note)
		if e.Body != "" {
			sb.WriteString(e.Body)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
