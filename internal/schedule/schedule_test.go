package schedule

import (
	"testing"
	"time"

	"github.com/tobyns/focusgate/internal/state"
)

// Monday 2026-08-31 14:30 local time.
var monday1430 = time.Date(2026, 8, 31, 14, 30, 0, 0, time.Local)

func slot(day int, start, end string) state.ScheduleSlot {
	return state.ScheduleSlot{ID: "slot", Day: day, StartTime: start, EndTime: end, Enabled: true}
}

func TestDisabledOrEmptyScheduleIsAlwaysActive(t *testing.T) {
	tests := []struct {
		name string
		ws   state.WeeklySchedule
	}{
		{"disabled with slots", state.WeeklySchedule{Enabled: false, Slots: []state.ScheduleSlot{slot(1, "09:00", "17:00")}}},
		{"enabled no slots", state.WeeklySchedule{Enabled: true}},
		{"zero value", state.WeeklySchedule{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !IsActive(tt.ws, monday1430) {
				t.Error("expected blocking active")
			}
		})
	}
}

func TestSlotMatching(t *testing.T) {
	tests := []struct {
		name string
		slot state.ScheduleSlot
		now  time.Time
		want bool
	}{
		{"inside window", slot(1, "09:00", "17:00"), monday1430, true},
		{"before window", slot(1, "15:00", "17:00"), monday1430, false},
		{"after window", slot(1, "09:00", "12:00"), monday1430, false},
		{"start boundary inclusive", slot(1, "14:30", "17:00"), monday1430, true},
		{"end boundary inclusive", slot(1, "09:00", "14:30"), monday1430, true},
		{"wrong day", slot(2, "09:00", "17:00"), monday1430, false},
		{"unpadded hours", slot(1, "9:00", "17:00"), monday1430, true},
		{"disabled slot", state.ScheduleSlot{Day: 1, StartTime: "09:00", EndTime: "17:00", Enabled: false}, monday1430, false},
		{"malformed start skipped", slot(1, "nine", "17:00"), monday1430, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := state.WeeklySchedule{Enabled: true, Slots: []state.ScheduleSlot{tt.slot}}
			if got := IsActive(ws, tt.now); got != tt.want {
				t.Errorf("IsActive = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlappingSlotsActAsUnion(t *testing.T) {
	ws := state.WeeklySchedule{
		Enabled: true,
		Slots: []state.ScheduleSlot{
			slot(1, "08:00", "10:00"),
			slot(1, "14:00", "16:00"),
			slot(1, "15:00", "18:00"),
		},
	}
	if !IsActive(ws, monday1430) {
		t.Error("expected any matching slot to activate blocking")
	}

	outside := time.Date(2026, 8, 31, 12, 0, 0, 0, time.Local)
	if IsActive(ws, outside) {
		t.Error("expected blocking suspended between windows")
	}
}
