// Package events delivers per-task progress streams. Each task owns one
// Stream that enforces the stage ordering of the task lifecycle: events are
// emitted in state-machine order, never duplicated, and never after a
// terminal stage. Subscribers get the full history on attach followed by
// live events; a slow or cancelled subscriber loses delivery without
// affecting the emitting pipeline.
package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taoxee/scribeflow/errors"
)

// Stage tags one progress event.
type Stage string

const (
	StageQueued     Stage = "queued"
	StageCacheHit   Stage = "cache_hit"
	StageASRStarted Stage = "asr_started"
	StageASRDone    Stage = "asr_done"
	StageLLMStarted Stage = "llm_started"
	StageLLMDone    Stage = "llm_done"
	StageFailed     Stage = "failed"
	StageComplete   Stage = "complete"
)

// Terminal reports whether the stage ends the stream.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// transitions maps each stage to its allowed successors. The zero Stage is
// the pre-queued start state.
var transitions = map[Stage][]Stage{
	"":              {StageQueued},
	StageQueued:     {StageCacheHit, StageASRStarted},
	StageCacheHit:   {StageComplete},
	StageASRStarted: {StageASRDone, StageFailed},
	StageASRDone:    {StageLLMStarted},
	StageLLMStarted: {StageLLMDone, StageFailed},
	StageLLMDone:    {StageComplete},
}

// Event is one progress notification.
type Event struct {
	TaskID  string    `json:"task_id"`
	Seq     int       `json:"seq"`
	Stage   Stage     `json:"stage"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

type subscriber struct {
	ch chan Event
}

// Stream is the ordered event sequence of one task.
type Stream struct {
	taskID string

	mu      sync.Mutex
	last    Stage
	history []Event
	subs    map[string]*subscriber
	// onTerminal fires once, after the terminal event is recorded.
	onTerminal func()
}

// NewStream creates an empty stream for a task.
func NewStream(taskID string) *Stream {
	return &Stream{
		taskID: taskID,
		subs:   make(map[string]*subscriber),
	}
}

// Emit appends one event and fans it out. An emit that violates the stage
// order is rejected so a pipeline bug cannot publish a misleading sequence.
func (s *Stream) Emit(stage Stage, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last.Terminal() {
		return errors.New(errors.ErrCodeInternal, "event emitted after terminal stage", http.StatusInternalServerError).
			WithDetail("stage", string(stage))
	}
	if !allowed(s.last, stage) {
		return errors.New(errors.ErrCodeInternal, "out-of-order stage emit", http.StatusInternalServerError).
			WithDetail("from", string(s.last)).WithDetail("to", string(stage))
	}

	ev := Event{
		TaskID:  s.taskID,
		Seq:     len(s.history) + 1,
		Stage:   stage,
		At:      time.Now().UTC(),
		Payload: payload,
	}
	s.last = stage
	s.history = append(s.history, ev)

	for id, sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			// Slow subscriber: drop it, the pipeline never blocks on delivery.
			close(sub.ch)
			delete(s.subs, id)
		}
	}
	if stage.Terminal() {
		for id, sub := range s.subs {
			close(sub.ch)
			delete(s.subs, id)
		}
		if s.onTerminal != nil {
			cb := s.onTerminal
			s.onTerminal = nil
			defer cb()
		}
	}
	return nil
}

// Subscribe replays the history and then delivers live events until the
// stream terminates or ctx is cancelled. Cancellation only stops delivery;
// the producing task keeps running.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	s.mu.Lock()

	// Buffer covers the full lifecycle so replay never blocks.
	ch := make(chan Event, 32)
	for _, ev := range s.history {
		ch <- ev
	}
	if s.last.Terminal() {
		close(ch)
		s.mu.Unlock()
		return ch
	}

	id := uuid.NewString()
	s.subs[id] = &subscriber{ch: ch}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			close(sub.ch)
			delete(s.subs, id)
		}
		s.mu.Unlock()
	}()
	return ch
}

// History returns a copy of all events emitted so far.
func (s *Stream) History() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.history))
	copy(out, s.history)
	return out
}

// Last returns the most recent stage, or "" before the first emit.
func (s *Stream) Last() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func allowed(from, to Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// terminalRetention is how long a finished stream stays addressable for
// late subscribers. After eviction, readers fall back to the stored record.
const terminalRetention = 10 * time.Minute

// Hub indexes streams by task id. Finished streams are evicted after a
// grace period so a long-running process does not hold history forever.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]*Stream
	retain  time.Duration
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]*Stream), retain: terminalRetention}
}

// Create registers a stream for a task id and returns it. Creating the same
// id twice returns the existing stream.
func (h *Hub) Create(taskID string) *Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.streams[taskID]; ok {
		return st
	}
	st := NewStream(taskID)
	st.onTerminal = func() {
		time.AfterFunc(h.retain, func() { h.remove(taskID) })
	}
	h.streams[taskID] = st
	return st
}

func (h *Hub) remove(taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.streams, taskID)
}

// Get returns the stream for a task id.
func (h *Hub) Get(taskID string) (*Stream, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st, ok := h.streams[taskID]
	return st, ok
}
