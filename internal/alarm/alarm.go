// Package alarm provides the scheduled-alarm collaborator: named one-shot
// wake-ups with at most one pending timer per name.
package alarm

import (
	"sync"
	"time"
)

// Scheduler schedules and cancels named one-shot wake-ups. Scheduling an
// already-pending name replaces it; the callback fires at most once per
// schedule.
type Scheduler interface {
	Schedule(name string, delay time.Duration)
	Cancel(name string)
}

// TimerScheduler implements Scheduler with in-process timers. Wake-ups do
// not survive a daemon restart; the daemon re-arms from persisted session
// state on startup.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	fire   func(name string)
}

// NewTimerScheduler creates a scheduler that invokes fire(name) when a
// wake-up elapses. fire runs on the timer goroutine.
func NewTimerScheduler(fire func(name string)) *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[string]*time.Timer),
		fire:   fire,
	}
}

// Schedule arms (or re-arms) the named wake-up.
func (s *TimerScheduler) Schedule(name string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// A Cancel or Schedule may have raced this callback while it waited
		// for the lock; only the currently registered timer may fire.
		current, ok := s.timers[name]
		if !ok || current != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, name)
		s.mu.Unlock()
		s.fire(name)
	})
	s.timers[name] = t
}

// Cancel stops the named wake-up if pending.
func (s *TimerScheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// Stop cancels all pending wake-ups.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}
