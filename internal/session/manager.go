// Package session owns the focus/break session lifecycle and the pomodoro
// cycle layered on top of it. Remaining time is always recomputed from wall
// clocks, never decremented by a tick, so the timer survives process
// suspension and restarts.
package session

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tobyns/focusgate/internal/alarm"
	"github.com/tobyns/focusgate/internal/state"
	"github.com/tobyns/focusgate/internal/stats"
)

// AlarmName is the single wake-up the session timer keeps pending.
const AlarmName = "session-end"

var (
	// ErrNoActiveSession is returned by pause when no session is running.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionNotFound is returned when an operation references a session
	// that is not the current one.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionAlreadyEnded is returned by pause after the session's time
	// has naturally run out.
	ErrSessionAlreadyEnded = errors.New("session already ended")
	// ErrNotPaused is returned by resume when no paused record exists.
	ErrNotPaused = errors.New("no paused session")
)

// Manager is the session/timer state machine. It keeps no in-memory session
// state; every operation reads and writes the store.
type Manager struct {
	rec    *state.Records
	alarms alarm.Scheduler
	stats  *stats.Aggregator
	now    func() time.Time
}

// NewManager creates a session manager. now may be nil to use wall-clock time.
func NewManager(rec *state.Records, alarms alarm.Scheduler, agg *stats.Aggregator, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{rec: rec, alarms: alarms, stats: agg, now: now}
}

// Start begins a new session of the given length and type, scheduling the
// session-end wake-up. An in-flight session is finalized as abandoned first
// rather than silently discarded.
func (m *Manager) Start(durationMinutes int, typ string) (state.FocusSession, error) {
	if typ != state.SessionFocus && typ != state.SessionBreak {
		return state.FocusSession{}, fmt.Errorf("unknown session type: %s", typ)
	}
	if durationMinutes <= 0 {
		return state.FocusSession{}, fmt.Errorf("session duration must be positive, got %d", durationMinutes)
	}

	now := m.now()

	cur, err := m.rec.CurrentSession()
	if err != nil {
		return state.FocusSession{}, err
	}
	if cur != nil {
		if err := m.finalize(*cur, false, now); err != nil {
			return state.FocusSession{}, err
		}
	}

	sess := state.FocusSession{
		ID:        uuid.New().String(),
		StartTime: now,
		Duration:  durationMinutes,
		Type:      typ,
	}

	if err := m.rec.SetCurrentSession(sess); err != nil {
		return state.FocusSession{}, err
	}
	if err := m.rec.AppendHistory(sess); err != nil {
		return state.FocusSession{}, err
	}

	m.alarms.Schedule(AlarmName, time.Duration(durationMinutes)*time.Minute)
	return sess, nil
}

// End terminates the current session. completed=false marks it abandoned;
// completed sessions feed the stats aggregator. The pending wake-up is
// always cancelled.
func (m *Manager) End(sessionID string, completed bool) (state.FocusSession, error) {
	cur, err := m.rec.CurrentSession()
	if err != nil {
		return state.FocusSession{}, err
	}
	if cur == nil || cur.ID != sessionID {
		return state.FocusSession{}, ErrSessionNotFound
	}

	sess := *cur
	if err := m.finalize(sess, completed, m.now()); err != nil {
		return state.FocusSession{}, err
	}

	done, err := m.rec.History()
	if err == nil {
		for i := len(done) - 1; i >= 0; i-- {
			if done[i].ID == sessionID {
				return done[i], nil
			}
		}
	}
	// History lookup is best-effort; reconstruct from what we know.
	end := m.now()
	sess.EndTime = &end
	sess.Completed = completed
	return sess, nil
}

// finalize writes the terminal state for sess at endTime, clears the current
// and paused records, cancels the wake-up, and feeds completed sessions to
// the stats aggregator.
func (m *Manager) finalize(sess state.FocusSession, completed bool, endTime time.Time) error {
	sess.EndTime = &endTime
	sess.Completed = completed

	if err := m.rec.UpdateHistory(sess); err != nil {
		return err
	}
	if err := m.rec.ClearCurrentSession(); err != nil {
		return err
	}
	if err := m.rec.ClearPausedSession(); err != nil {
		return err
	}
	m.alarms.Cancel(AlarmName)

	if completed {
		if err := m.stats.RecordCompleted(sess, endTime); err != nil {
			return err
		}
	}
	return nil
}

// Current returns the current session, or nil when idle.
func (m *Manager) Current() (*state.FocusSession, error) {
	return m.rec.CurrentSession()
}

// Remaining returns the seconds left in the current session at now. A paused
// session reports its frozen value; an idle state reports zero.
func (m *Manager) Remaining(now time.Time) (int, error) {
	paused, err := m.rec.PausedSession()
	if err != nil {
		return 0, err
	}
	if paused != nil {
		return paused.RemainingSeconds, nil
	}

	cur, err := m.rec.CurrentSession()
	if err != nil {
		return 0, err
	}
	if cur == nil {
		return 0, nil
	}

	elapsed := int(math.Round(now.Sub(cur.StartTime).Seconds()))
	remaining := cur.Duration*60 - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Pause freezes the current session, cancelling the pending wake-up.
func (m *Manager) Pause() error {
	cur, err := m.rec.CurrentSession()
	if err != nil {
		return err
	}
	if cur == nil {
		return ErrNoActiveSession
	}

	if paused, err := m.rec.PausedSession(); err != nil {
		return err
	} else if paused != nil {
		// Already paused; the frozen value stands.
		return nil
	}

	now := m.now()
	remaining, err := m.Remaining(now)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		return ErrSessionAlreadyEnded
	}

	m.alarms.Cancel(AlarmName)
	return m.rec.SetPausedSession(state.PausedSession{
		SessionID:        cur.ID,
		RemainingSeconds: remaining,
		PausedAt:         now,
	})
}

// Resume unfreezes a paused session. The session's start time is shifted
// forward by the pause duration so Remaining stays consistent without a
// paused flag, and the wake-up is re-armed for the frozen remainder.
func (m *Manager) Resume() error {
	paused, err := m.rec.PausedSession()
	if err != nil {
		return err
	}
	if paused == nil {
		return ErrNotPaused
	}

	cur, err := m.rec.CurrentSession()
	if err != nil {
		return err
	}
	if cur == nil || cur.ID != paused.SessionID {
		// Paused record without a matching current session is stale.
		if err := m.rec.ClearPausedSession(); err != nil {
			return err
		}
		return ErrSessionNotFound
	}

	now := m.now()
	cur.StartTime = cur.StartTime.Add(now.Sub(paused.PausedAt))
	if err := m.rec.SetCurrentSession(*cur); err != nil {
		return err
	}
	if err := m.rec.UpdateHistory(*cur); err != nil {
		return err
	}
	if err := m.rec.ClearPausedSession(); err != nil {
		return err
	}

	m.alarms.Schedule(AlarmName, time.Duration(paused.RemainingSeconds)*time.Second)
	return nil
}

// Recover finalizes a current session whose wall-clock end passed while the
// daemon was not running, and re-arms the wake-up for one still in flight.
// It must run before any other operation after startup. When a session was
// finalized, it is returned so the caller can run the missed end-of-session
// transition.
func (m *Manager) Recover() (*state.FocusSession, error) {
	cur, err := m.rec.CurrentSession()
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, nil
	}

	paused, err := m.rec.PausedSession()
	if err != nil {
		return nil, err
	}
	if paused != nil {
		// A paused session holds no deadline; nothing to re-arm.
		return nil, nil
	}

	end := cur.StartTime.Add(time.Duration(cur.Duration) * time.Minute)
	now := m.now()
	if !now.Before(end) {
		// The session ran out while the process was down. Credit it as
		// completed at its scheduled end, not at recovery time.
		fmt.Printf("[session] finalizing session %s that elapsed while stopped\n", cur.ID)
		if err := m.finalize(*cur, true, end); err != nil {
			return nil, err
		}
		done := *cur
		done.EndTime = &end
		done.Completed = true
		return &done, nil
	}

	m.alarms.Schedule(AlarmName, end.Sub(now))
	return nil, nil
}
