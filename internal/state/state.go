// Package state defines the persisted records and a typed accessor layer over
// the key-value store. The daemon holds no authoritative in-memory copy:
// every operation reads the current record, computes, and writes back.
package state

import "time"

// Session types.
const (
	SessionFocus = "focus"
	SessionBreak = "break"
)

// Logical store keys. One record per key.
const (
	KeyBlockedSites    = "blocked_sites"
	KeySettings        = "settings"
	KeyStats           = "stats"
	KeySessionHistory  = "session_history"
	KeyCurrentSession  = "current_session"
	KeyPausedSession   = "paused_session"
	KeyPomodoroState   = "pomodoro_state"
	KeyWeeklySchedule  = "weekly_schedule"
	KeyTemporaryBreaks = "temporary_breaks"
)

// BlockedSite is one blocklist entry. Domain is stored normalized: lower-case,
// scheme and leading "www." stripped. Duplicates are tolerated.
type BlockedSite struct {
	ID         string    `json:"id"`
	Domain     string    `json:"domain"`
	Category   string    `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	BlockCount int       `json:"block_count"`
}

// FocusSession is a single focus or break session. At most one session is
// current (EndTime unset) at any time. Once ended it is immutable.
type FocusSession struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  int        `json:"duration"` // scheduled length in minutes
	Completed bool       `json:"completed"`
	Type      string     `json:"type"` // "focus" or "break"
}

// PausedSession freezes the remaining time of the current session while paused.
type PausedSession struct {
	SessionID        string    `json:"session_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	PausedAt         time.Time `json:"paused_at"`
}

// PomodoroState is the single process-wide pomodoro record. It is reset to
// initial values whenever pomodoro mode is (re)started.
type PomodoroState struct {
	Enabled                bool `json:"enabled"`
	WorkDuration           int  `json:"work_duration"`            // minutes
	BreakDuration          int  `json:"break_duration"`           // minutes
	LongBreakDuration      int  `json:"long_break_duration"`      // minutes
	SessionsUntilLongBreak int  `json:"sessions_until_long_break"`
	CurrentCycle           int  `json:"current_cycle"`
	IsOnBreak              bool `json:"is_on_break"`
	TotalCyclesCompleted   int  `json:"total_cycles_completed"`
}

// ScheduleSlot is one day/time window in the weekly schedule. Times are
// zero-padded "HH:MM" strings compared lexicographically.
type ScheduleSlot struct {
	ID        string `json:"id"`
	Day       int    `json:"day"` // 0 = Sunday .. 6 = Saturday
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Enabled   bool   `json:"enabled"`
}

// WeeklySchedule gates when blocking is in effect. Overlapping enabled slots
// on the same day are treated as a union.
type WeeklySchedule struct {
	Enabled bool           `json:"enabled"`
	Slots   []ScheduleSlot `json:"slots"`
}

// Stats are cumulative focus metrics. All fields are monotonically
// non-decreasing except CurrentStreak, which can reset to 1.
type Stats struct {
	TotalFocusTime    int    `json:"total_focus_time"` // minutes
	TotalBlocks       int    `json:"total_blocks"`
	CurrentStreak     int    `json:"current_streak"`
	LongestStreak     int    `json:"longest_streak"`
	SessionsCompleted int    `json:"sessions_completed"`
	LastSessionDate   string `json:"last_session_date,omitempty"` // "2006-01-02" of the last completed focus session
}

// Settings is the global settings record.
type Settings struct {
	Enabled          bool `json:"enabled"`
	Notifications    bool `json:"notifications"`
	DailyGoalMinutes int  `json:"daily_goal_minutes,omitempty"`
}

// DefaultSettings are used when no settings record has been written yet.
// Blocking defaults to on: the feature fails toward its purpose.
func DefaultSettings() Settings {
	return Settings{Enabled: true, Notifications: true}
}
