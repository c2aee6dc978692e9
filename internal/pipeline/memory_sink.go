package pipeline

import "sync"

// MemorySink is a ProgressSink that records every event in memory, in
// emission order. It backs the test suite in place of the NATS publisher.
type MemorySink struct {
	mu     sync.Mutex
	events []Progress
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit implements ProgressSink.
func (s *MemorySink) Emit(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, p)
}

// Events returns a copy of the recorded events in emission order.
func (s *MemorySink) Events() []Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Progress, len(s.events))
	copy(out, s.events)
	return out
}
