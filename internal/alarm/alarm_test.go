package alarm

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleFiresOnce(t *testing.T) {
	var fired atomic.Int32
	s := NewTimerScheduler(func(name string) {
		if name != "session-end" {
			t.Errorf("unexpected alarm name: %s", name)
		}
		fired.Add(1)
	})
	defer s.Stop()

	s.Schedule("session-end", 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("expected 1 fire, got %d", got)
	}
}

func TestCancelPreventsFire(t *testing.T) {
	var fired atomic.Int32
	s := NewTimerScheduler(func(string) { fired.Add(1) })
	defer s.Stop()

	s.Schedule("session-end", 30*time.Millisecond)
	s.Cancel("session-end")
	time.Sleep(100 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("expected no fire after cancel, got %d", got)
	}
}

func TestScheduleReplacesPendingTimer(t *testing.T) {
	var fired atomic.Int32
	s := NewTimerScheduler(func(string) { fired.Add(1) })
	defer s.Stop()

	s.Schedule("session-end", 20*time.Millisecond)
	s.Schedule("session-end", 20*time.Millisecond)
	time.Sleep(120 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("expected replacement to keep a single pending timer, got %d fires", got)
	}
}

func TestCancelAfterExpiryDoesNotFire(t *testing.T) {
	var fired atomic.Int32
	s := NewTimerScheduler(func(string) { fired.Add(1) })
	defer s.Stop()

	s.Schedule("session-end", 10*time.Millisecond)

	// Hold the lock past expiry so the callback can only run after the
	// entry is gone, then cancel the way Cancel does.
	s.mu.Lock()
	time.Sleep(50 * time.Millisecond)
	if tm, ok := s.timers["session-end"]; ok {
		tm.Stop()
		delete(s.timers, "session-end")
	}
	s.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("cancelled wake-up fired %d time(s)", got)
	}
}

func TestExpiredCallbackIgnoresReplacement(t *testing.T) {
	var fired atomic.Int32
	s := NewTimerScheduler(func(string) { fired.Add(1) })
	defer s.Stop()

	s.Schedule("session-end", 10*time.Millisecond)

	// Let the timer expire while the lock is held, then swap in a
	// replacement the way a re-arming Schedule does. The expired callback
	// must neither fire nor unregister the replacement.
	s.mu.Lock()
	time.Sleep(50 * time.Millisecond)
	if tm, ok := s.timers["session-end"]; ok {
		tm.Stop()
	}
	s.timers["session-end"] = time.AfterFunc(time.Hour, func() { fired.Add(1) })
	s.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("superseded wake-up fired %d time(s)", got)
	}

	s.mu.Lock()
	_, ok := s.timers["session-end"]
	s.mu.Unlock()
	if !ok {
		t.Error("replacement wake-up was unregistered by the superseded callback")
	}

	s.Cancel("session-end")
	time.Sleep(20 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("expected no fire after cancel, got %d", got)
	}
}

func TestCancelUnknownNameIsNoop(t *testing.T) {
	s := NewTimerScheduler(func(string) {})
	defer s.Stop()
	s.Cancel("never-scheduled")
}
