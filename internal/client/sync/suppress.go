package sync

import (
	"sync"
	"time"
)

// Suppressor tracks which note ids are under active local edit. A suppressed
// id keeps its local value against any incoming remote state, regardless of
// timestamps.
//
// MarkEditing is called before each local mutation; DoneEditing arms a
// cancellable timer that lifts the suppression a short delay after the save
// completes. A new edit on the same id cancels the pending clear and re-arms
// it, so a continuing edit session never loses its protection window.
type Suppressor struct {
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	marked map[string]struct{}
}

// NewSuppressor returns a Suppressor that lifts suppression delay after
// DoneEditing.
func NewSuppressor(delay time.Duration) *Suppressor {
	return &Suppressor{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		marked: make(map[string]struct{}),
	}
}

// MarkEditing marks id as under edit and cancels any pending clear.
func (s *Suppressor) MarkEditing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.marked[id] = struct{}{}
}

// DoneEditing schedules the suppression on id to lift after the configured
// delay. Calling it for an unmarked id is a no-op.
func (s *Suppressor) DoneEditing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.marked[id]; !ok {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(s.delay, func() { s.clear(id) })
}

// Suppressed reports whether id is currently under edit.
func (s *Suppressor) Suppressed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.marked[id]
	return ok
}

func (s *Suppressor) clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marked, id)
	delete(s.timers, id)
}
