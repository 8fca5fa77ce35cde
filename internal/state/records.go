package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tobyns/focusgate/internal/store"
)

// Records is the typed read/write layer over the key-value store. Getters
// return zero-value defaults for absent keys; storage errors propagate to the
// caller unmodified.
type Records struct {
	store store.Store
}

// NewRecords wraps a store.
func NewRecords(s store.Store) *Records {
	return &Records{store: s}
}

func (r *Records) load(key string, out any) (bool, error) {
	raw, found, err := r.store.Get(key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (r *Records) save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return r.store.Set(key, raw)
}

// Settings returns the settings record, or defaults if none is stored.
func (r *Records) Settings() (Settings, error) {
	var s Settings
	found, err := r.load(KeySettings, &s)
	if err != nil {
		return Settings{}, err
	}
	if !found {
		return DefaultSettings(), nil
	}
	return s, nil
}

// SetSettings writes the settings record.
func (r *Records) SetSettings(s Settings) error {
	return r.save(KeySettings, s)
}

// BlockedSites returns the blocklist, empty if none is stored.
func (r *Records) BlockedSites() ([]BlockedSite, error) {
	var sites []BlockedSite
	if _, err := r.load(KeyBlockedSites, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// SetBlockedSites writes the blocklist.
func (r *Records) SetBlockedSites(sites []BlockedSite) error {
	if sites == nil {
		sites = []BlockedSite{}
	}
	return r.save(KeyBlockedSites, sites)
}

// Stats returns the stats record, zero-valued if none is stored.
func (r *Records) Stats() (Stats, error) {
	var s Stats
	if _, err := r.load(KeyStats, &s); err != nil {
		return Stats{}, err
	}
	return s, nil
}

// SetStats writes the stats record.
func (r *Records) SetStats(s Stats) error {
	return r.save(KeyStats, s)
}

// History returns all recorded sessions, oldest first.
func (r *Records) History() ([]FocusSession, error) {
	var hist []FocusSession
	if _, err := r.load(KeySessionHistory, &hist); err != nil {
		return nil, err
	}
	return hist, nil
}

// AppendHistory appends a session to the history list.
func (r *Records) AppendHistory(sess FocusSession) error {
	hist, err := r.History()
	if err != nil {
		return err
	}
	hist = append(hist, sess)
	return r.save(KeySessionHistory, hist)
}

// UpdateHistory replaces the history entry with the same ID. Unknown IDs are
// ignored; history is best-effort analytics data.
func (r *Records) UpdateHistory(sess FocusSession) error {
	hist, err := r.History()
	if err != nil {
		return err
	}
	for i := range hist {
		if hist[i].ID == sess.ID {
			hist[i] = sess
			break
		}
	}
	return r.save(KeySessionHistory, hist)
}

// CurrentSession returns the current session, or nil if idle.
func (r *Records) CurrentSession() (*FocusSession, error) {
	var sess FocusSession
	found, err := r.load(KeyCurrentSession, &sess)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &sess, nil
}

// SetCurrentSession writes the current-session record.
func (r *Records) SetCurrentSession(sess FocusSession) error {
	return r.save(KeyCurrentSession, sess)
}

// ClearCurrentSession removes the current-session record.
func (r *Records) ClearCurrentSession() error {
	return r.store.Remove(KeyCurrentSession)
}

// PausedSession returns the paused-session record, or nil if not paused.
func (r *Records) PausedSession() (*PausedSession, error) {
	var p PausedSession
	found, err := r.load(KeyPausedSession, &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// SetPausedSession writes the paused-session record.
func (r *Records) SetPausedSession(p PausedSession) error {
	return r.save(KeyPausedSession, p)
}

// ClearPausedSession removes the paused-session record.
func (r *Records) ClearPausedSession() error {
	return r.store.Remove(KeyPausedSession)
}

// PomodoroState returns the pomodoro record, disabled if none is stored.
func (r *Records) PomodoroState() (PomodoroState, error) {
	var ps PomodoroState
	if _, err := r.load(KeyPomodoroState, &ps); err != nil {
		return PomodoroState{}, err
	}
	return ps, nil
}

// SetPomodoroState writes the pomodoro record.
func (r *Records) SetPomodoroState(ps PomodoroState) error {
	return r.save(KeyPomodoroState, ps)
}

// Schedule returns the weekly schedule, disabled-and-empty if none is stored.
func (r *Records) Schedule() (WeeklySchedule, error) {
	var ws WeeklySchedule
	if _, err := r.load(KeyWeeklySchedule, &ws); err != nil {
		return WeeklySchedule{}, err
	}
	return ws, nil
}

// SetSchedule writes the weekly schedule.
func (r *Records) SetSchedule(ws WeeklySchedule) error {
	return r.save(KeyWeeklySchedule, ws)
}

// TemporaryBreaks returns the domain -> expiry map, empty if none is stored.
func (r *Records) TemporaryBreaks() (map[string]time.Time, error) {
	breaks := make(map[string]time.Time)
	if _, err := r.load(KeyTemporaryBreaks, &breaks); err != nil {
		return nil, err
	}
	return breaks, nil
}

// SetTemporaryBreaks writes the domain -> expiry map.
func (r *Records) SetTemporaryBreaks(breaks map[string]time.Time) error {
	if breaks == nil {
		breaks = map[string]time.Time{}
	}
	return r.save(KeyTemporaryBreaks, breaks)
}
