package startup

import (
	"sync"
	"time"
)

// StepEvent is a recorded step with its tags and timing.
type StepEvent struct {
	ID    int
	Name  string
	Tags  map[string]string
	Start time.Time
	End   time.Time
}

// Buffering is a Startup implementation that keeps every recorded step in
// memory. It is primarily meant for tests and for dumping a startup
// profile after the fact.
type Buffering struct {
	mu     sync.Mutex
	nextID int
	events []StepEvent
}

var _ Startup = (*Buffering)(nil)

// NewBuffering creates an empty in-memory recorder.
func NewBuffering() *Buffering {
	return &Buffering{}
}

// Start begins a new recorded step.
func (b *Buffering) Start(name string) Step {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.mu.Unlock()
	return &bufferedStep{
		recorder: b,
		event: StepEvent{
			ID:    id,
			Name:  name,
			Tags:  make(map[string]string),
			Start: time.Now(),
		},
	}
}

// Events returns a copy of all steps ended so far, in end order.
func (b *Buffering) Events() []StepEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]StepEvent, len(b.events))
	copy(out, b.events)
	return out
}

// EventsNamed returns all ended steps carrying the given name.
func (b *Buffering) EventsNamed(name string) []StepEvent {
	var out []StepEvent
	for _, ev := range b.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (b *Buffering) record(ev StepEvent) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

type bufferedStep struct {
	recorder *Buffering
	event    StepEvent
	ended    bool
}

func (s *bufferedStep) Tag(key string, value func() string) Step {
	if !s.ended {
		s.event.Tags[key] = value()
	}
	return s
}

func (s *bufferedStep) End() {
	if s.ended {
		return
	}
	s.ended = true
	s.event.End = time.Now()
	s.recorder.record(s.event)
}
