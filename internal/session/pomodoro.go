package session

import (
	"fmt"

	"github.com/tobyns/focusgate/internal/state"
)

// DefaultSessionsUntilLongBreak is the long-break cadence used when pomodoro
// mode starts without an override.
const DefaultSessionsUntilLongBreak = 4

// Transition describes a pomodoro hand-off: the session that was just
// started, the updated cycle state, and a user-facing message.
type Transition struct {
	Next    state.FocusSession  `json:"next"`
	State   state.PomodoroState `json:"state"`
	Message string              `json:"message"`
}

// Pomodoro drives the automatic focus/break cycle on top of the session
// manager.
type Pomodoro struct {
	mgr *Manager
	rec *state.Records
}

// NewPomodoro creates a pomodoro controller.
func NewPomodoro(mgr *Manager, rec *state.Records) *Pomodoro {
	return &Pomodoro{mgr: mgr, rec: rec}
}

// Start resets the cycle state and begins the first work session. Durations
// are minutes; sessionsUntilLongBreak <= 0 selects the default cadence.
func (p *Pomodoro) Start(work, brk, longBreak, sessionsUntilLongBreak int) (*Transition, error) {
	if sessionsUntilLongBreak <= 0 {
		sessionsUntilLongBreak = DefaultSessionsUntilLongBreak
	}

	ps := state.PomodoroState{
		Enabled:                true,
		WorkDuration:           work,
		BreakDuration:          brk,
		LongBreakDuration:      longBreak,
		SessionsUntilLongBreak: sessionsUntilLongBreak,
		CurrentCycle:           1,
	}
	if err := p.rec.SetPomodoroState(ps); err != nil {
		return nil, err
	}

	sess, err := p.mgr.Start(work, state.SessionFocus)
	if err != nil {
		return nil, err
	}

	return &Transition{
		Next:    sess,
		State:   ps,
		Message: fmt.Sprintf("Pomodoro started: %d minute focus session (cycle 1)", work),
	}, nil
}

// OnSessionElapsed computes and starts the session that follows the one that
// just ended. Returns nil when pomodoro mode is disabled, in which case the
// caller falls back to plain session-end handling.
func (p *Pomodoro) OnSessionElapsed(ended state.FocusSession) (*Transition, error) {
	ps, err := p.rec.PomodoroState()
	if err != nil {
		return nil, err
	}
	if !ps.Enabled {
		return nil, nil
	}

	var nextType string
	var nextDuration int
	var message string

	if ended.Type == state.SessionBreak {
		nextType = state.SessionFocus
		nextDuration = ps.WorkDuration
		ps.IsOnBreak = false
		message = fmt.Sprintf("Break over: %d minute focus session (cycle %d)", nextDuration, ps.CurrentCycle)
	} else {
		ps.TotalCyclesCompleted++
		nextType = state.SessionBreak
		if ps.TotalCyclesCompleted%ps.SessionsUntilLongBreak == 0 {
			nextDuration = ps.LongBreakDuration
			message = fmt.Sprintf("Focus complete: time for a %d minute long break", nextDuration)
		} else {
			nextDuration = ps.BreakDuration
			message = fmt.Sprintf("Focus complete: take a %d minute break", nextDuration)
		}
		ps.CurrentCycle++
		ps.IsOnBreak = true
	}

	if err := p.rec.SetPomodoroState(ps); err != nil {
		return nil, err
	}

	sess, err := p.mgr.Start(nextDuration, nextType)
	if err != nil {
		return nil, err
	}

	return &Transition{Next: sess, State: ps, Message: message}, nil
}

// Stop ends the current session as abandoned and disables pomodoro mode.
func (p *Pomodoro) Stop() error {
	cur, err := p.mgr.Current()
	if err != nil {
		return err
	}
	if cur != nil {
		if _, err := p.mgr.End(cur.ID, false); err != nil {
			return err
		}
	}

	ps, err := p.rec.PomodoroState()
	if err != nil {
		return err
	}
	ps.Enabled = false
	ps.IsOnBreak = false
	return p.rec.SetPomodoroState(ps)
}

// Skip ends the current session as abandoned and advances to the next one
// without waiting for the wake-up.
func (p *Pomodoro) Skip() (*Transition, error) {
	cur, err := p.mgr.Current()
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrNoActiveSession
	}

	ended, err := p.mgr.End(cur.ID, false)
	if err != nil {
		return nil, err
	}

	return p.OnSessionElapsed(ended)
}
