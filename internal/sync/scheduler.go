package sync

import (
	"sync"
	"time"
)

// Task sources. At most one task is pending per source; scheduling a new one
// supersedes any earlier task that has not fired yet.
const (
	taskSearch = "search"
	taskSettle = "settle"
)

type scheduler struct {
	mu      sync.Mutex
	stopped bool
	seq     map[string]uint64
	timers  map[string]*time.Timer
}

func newScheduler() *scheduler {
	return &scheduler{
		seq:    make(map[string]uint64),
		timers: make(map[string]*time.Timer),
	}
}

// Schedule runs fn after delay, cancelling any earlier pending task for the
// same source. A non-positive delay runs fn synchronously.
func (s *scheduler) Schedule(source string, delay time.Duration, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if timer, ok := s.timers[source]; ok {
		timer.Stop()
		delete(s.timers, source)
	}
	s.seq[source]++
	n := s.seq[source]

	if delay <= 0 {
		s.mu.Unlock()
		fn()
		return
	}

	s.timers[source] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.stopped || s.seq[source] != n {
			s.mu.Unlock()
			return
		}
		delete(s.timers, source)
		s.mu.Unlock()
		fn()
	})
	s.mu.Unlock()
}

// Cancel drops the pending task for source, if any.
func (s *scheduler) Cancel(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[source]++
	if timer, ok := s.timers[source]; ok {
		timer.Stop()
		delete(s.timers, source)
	}
}

// Stop cancels everything and prevents further scheduling.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for source, timer := range s.timers {
		timer.Stop()
		delete(s.timers, source)
	}
}
