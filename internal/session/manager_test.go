package session

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tobyns/focusgate/internal/state"
	"github.com/tobyns/focusgate/internal/stats"
	"github.com/tobyns/focusgate/internal/store"
)

// fakeScheduler records schedule/cancel calls instead of arming timers.
type fakeScheduler struct {
	mu        sync.Mutex
	pending   map[string]time.Duration
	schedules int
	cancels   int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{pending: make(map[string]time.Duration)}
}

func (f *fakeScheduler) Schedule(name string, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[name] = delay
	f.schedules++
}

func (f *fakeScheduler) Cancel(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, name)
	f.cancels++
}

func (f *fakeScheduler) pendingDelay(name string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.pending[name]
	return d, ok
}

type harness struct {
	mgr    *Manager
	rec    *state.Records
	alarms *fakeScheduler
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, err := store.OpenFile(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	rec := state.NewRecords(s)

	h := &harness{
		rec:    rec,
		alarms: newFakeScheduler(),
		now:    time.Date(2026, 8, 31, 9, 0, 0, 0, time.Local),
	}
	h.mgr = NewManager(rec, h.alarms, stats.NewAggregator(rec), func() time.Time { return h.now })
	return h
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func TestStartEndRoundTrip(t *testing.T) {
	h := newHarness(t)

	sess, err := h.mgr.Start(25, state.SessionFocus)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if delay, ok := h.alarms.pendingDelay(AlarmName); !ok || delay != 25*time.Minute {
		t.Errorf("expected 25m wake-up pending, got %v (ok=%v)", delay, ok)
	}

	h.advance(25 * time.Minute)
	ended, err := h.mgr.End(sess.ID, true)
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if !ended.Completed || ended.EndTime == nil {
		t.Errorf("expected finalized session, got %+v", ended)
	}
	if _, ok := h.alarms.pendingDelay(AlarmName); ok {
		t.Error("expected wake-up cancelled after end")
	}

	remaining, err := h.mgr.Remaining(h.now)
	if err != nil {
		t.Fatalf("remaining failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected 0 remaining on idle state, got %d", remaining)
	}

	// A second end with the same id must fail without state change.
	if _, err := h.mgr.End(sess.ID, true); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEndWrongIDFails(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(25, state.SessionFocus)

	if _, err := h.mgr.End("other-id", true); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	cur, _ := h.mgr.Current()
	if cur == nil {
		t.Error("expected current session unchanged after failed end")
	}
}

func TestRemainingIsWallClockBased(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(25, state.SessionFocus)

	h.advance(10 * time.Minute)
	remaining, _ := h.mgr.Remaining(h.now)
	if remaining != 15*60 {
		t.Errorf("expected 900s remaining, got %d", remaining)
	}

	// Past the end, remaining clamps at zero.
	h.advance(20 * time.Minute)
	remaining, _ = h.mgr.Remaining(h.now)
	if remaining != 0 {
		t.Errorf("expected 0 remaining past the end, got %d", remaining)
	}
}

func TestStartFinalizesSupersededSession(t *testing.T) {
	h := newHarness(t)

	first, _ := h.mgr.Start(25, state.SessionFocus)
	h.advance(5 * time.Minute)
	second, err := h.mgr.Start(10, state.SessionFocus)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	cur, _ := h.mgr.Current()
	if cur == nil || cur.ID != second.ID {
		t.Fatalf("expected second session current, got %+v", cur)
	}

	// The superseded session is marked abandoned in history, not discarded.
	hist, _ := h.rec.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	if hist[0].ID != first.ID || hist[0].Completed || hist[0].EndTime == nil {
		t.Errorf("expected first session finalized as abandoned, got %+v", hist[0])
	}

	if delay, _ := h.alarms.pendingDelay(AlarmName); delay != 10*time.Minute {
		t.Errorf("expected wake-up re-armed for new session, got %v", delay)
	}
}

func TestPauseFreezesRemaining(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(25, state.SessionFocus)

	h.advance(10 * time.Minute)
	if err := h.mgr.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if _, ok := h.alarms.pendingDelay(AlarmName); ok {
		t.Error("expected wake-up cancelled on pause")
	}

	// Time passes while paused; remaining stays frozen.
	h.advance(30 * time.Minute)
	remaining, _ := h.mgr.Remaining(h.now)
	if remaining != 15*60 {
		t.Errorf("expected frozen 900s, got %d", remaining)
	}
}

func TestResumeShiftsStartTime(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(25, state.SessionFocus)

	h.advance(10 * time.Minute)
	h.mgr.Pause()

	h.advance(30 * time.Minute)
	if err := h.mgr.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	if delay, ok := h.alarms.pendingDelay(AlarmName); !ok || delay != 15*time.Minute {
		t.Errorf("expected wake-up re-armed for 15m, got %v (ok=%v)", delay, ok)
	}

	// Immediately after resume the remainder is unchanged.
	remaining, _ := h.mgr.Remaining(h.now)
	if remaining != 15*60 {
		t.Errorf("expected 900s after resume, got %d", remaining)
	}

	// And it keeps counting down from there.
	h.advance(5 * time.Minute)
	remaining, _ = h.mgr.Remaining(h.now)
	if remaining != 10*60 {
		t.Errorf("expected 600s, got %d", remaining)
	}
}

func TestPauseErrors(t *testing.T) {
	h := newHarness(t)

	if err := h.mgr.Pause(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession when idle, got %v", err)
	}

	h.mgr.Start(25, state.SessionFocus)
	h.advance(26 * time.Minute)
	if err := h.mgr.Pause(); !errors.Is(err, ErrSessionAlreadyEnded) {
		t.Errorf("expected ErrSessionAlreadyEnded past expiry, got %v", err)
	}
}

func TestResumeWithoutPauseFails(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(25, state.SessionFocus)

	if err := h.mgr.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("expected ErrNotPaused, got %v", err)
	}
}

func TestRecoverFinalizesExpiredSession(t *testing.T) {
	h := newHarness(t)
	sess, _ := h.mgr.Start(25, state.SessionFocus)

	// Simulate a restart 40 minutes later: the wall-clock end has passed.
	h.advance(40 * time.Minute)
	done, err := h.mgr.Recover()
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if done == nil || done.ID != sess.ID || !done.Completed {
		t.Fatalf("expected recovered session completed, got %+v", done)
	}

	cur, _ := h.mgr.Current()
	if cur != nil {
		t.Error("expected no current session after recovery")
	}

	// Stats credit the scheduled length, not the downtime.
	st, _ := h.rec.Stats()
	if st.TotalFocusTime != 25 {
		t.Errorf("expected 25 focus minutes credited, got %d", st.TotalFocusTime)
	}
	if st.SessionsCompleted != 1 {
		t.Errorf("expected 1 completed session, got %d", st.SessionsCompleted)
	}
}

func TestRecoverReArmsLiveSession(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(25, state.SessionFocus)

	// Restart 10 minutes in: the in-memory timer is gone, recovery re-arms it.
	h.alarms.Cancel(AlarmName)
	h.advance(10 * time.Minute)
	done, err := h.mgr.Recover()
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if done != nil {
		t.Fatalf("expected live session untouched, got %+v", done)
	}
	if delay, ok := h.alarms.pendingDelay(AlarmName); !ok || delay != 15*time.Minute {
		t.Errorf("expected wake-up re-armed for 15m, got %v (ok=%v)", delay, ok)
	}
}

func TestStartValidatesInput(t *testing.T) {
	h := newHarness(t)

	if _, err := h.mgr.Start(0, state.SessionFocus); err == nil {
		t.Error("expected error for zero duration")
	}
	if _, err := h.mgr.Start(25, "nap"); err == nil {
		t.Error("expected error for unknown session type")
	}
}
