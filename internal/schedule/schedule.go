// Package schedule evaluates the weekly blocking schedule.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tobyns/focusgate/internal/state"
)

// IsActive reports whether blocking is currently in effect for the given
// schedule. A disabled or empty schedule means blocking is always active;
// otherwise blocking is active only inside an enabled slot for the current
// weekday, boundaries inclusive.
func IsActive(ws state.WeeklySchedule, now time.Time) bool {
	if !ws.Enabled || len(ws.Slots) == 0 {
		return true
	}

	day := int(now.Weekday())
	clock := now.Format("15:04")

	for _, slot := range ws.Slots {
		if !slot.Enabled || slot.Day != day {
			continue
		}
		start := normalizeClock(slot.StartTime)
		end := normalizeClock(slot.EndTime)
		if start == "" || end == "" {
			continue
		}
		// Zero-padded "HH:MM" compares correctly as a string.
		if start <= clock && clock <= end {
			return true
		}
	}

	return false
}

// normalizeClock zero-pads an "H:MM" or "HH:MM" value. Returns "" for
// malformed input, which disables the slot rather than failing evaluation.
func normalizeClock(v string) string {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return ""
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ""
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}
