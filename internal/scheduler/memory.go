package scheduler

import (
	"context"
	"sync"
	"time"
)

// MemoryScheduler runs deferred jobs on in-process timers. Suitable for
// single-node deployments and tests; jobs do not survive a restart.
type MemoryScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	handler func(Task)
	closed  bool
}

// NewMemoryScheduler builds a timer-backed scheduler. handler runs on the
// timer goroutine when a job fires.
func NewMemoryScheduler(handler func(Task)) *MemoryScheduler {
	return &MemoryScheduler{
		timers:  make(map[string]*time.Timer),
		handler: handler,
	}
}

// ScheduleOnce registers task to fire at the given time, replacing any
// job already registered under key.
func (s *MemoryScheduler) ScheduleOnce(_ context.Context, key string, at time.Time, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.handler(task)
		}
	})
	return nil
}

// Cancel stops and removes the job registered under key, if any.
func (s *MemoryScheduler) Cancel(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
	return nil
}

// Pending reports the number of registered jobs.
func (s *MemoryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops all registered timers.
func (s *MemoryScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}
