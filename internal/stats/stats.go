// Package stats aggregates cumulative focus time, completed-session counts,
// and the consecutive-day streak.
package stats

import (
	"math"
	"time"

	"github.com/tobyns/focusgate/internal/state"
)

const dateLayout = "2006-01-02"

// Aggregator updates the stats record when a focus session completes.
type Aggregator struct {
	rec *state.Records
}

// NewAggregator creates an aggregator over the given records.
func NewAggregator(rec *state.Records) *Aggregator {
	return &Aggregator{rec: rec}
}

// RecordCompleted applies a completed session to the stats. Break sessions
// and sessions without an end time are ignored. now determines "today" for
// the streak.
func (a *Aggregator) RecordCompleted(sess state.FocusSession, now time.Time) error {
	if sess.Type != state.SessionFocus || sess.EndTime == nil {
		return nil
	}

	stats, err := a.rec.Stats()
	if err != nil {
		return err
	}

	// Focus time counts the real elapsed minutes, not the scheduled length.
	elapsed := sess.EndTime.Sub(sess.StartTime)
	minutes := int(math.Round(elapsed.Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	stats.TotalFocusTime += minutes
	stats.SessionsCompleted++

	today := now.Format(dateLayout)
	switch stats.LastSessionDate {
	case today:
		// Same-day sessions do not inflate the streak.
	case now.AddDate(0, 0, -1).Format(dateLayout):
		stats.CurrentStreak++
	default:
		stats.CurrentStreak = 1
	}
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	stats.LastSessionDate = sess.StartTime.Format(dateLayout)

	return a.rec.SetStats(stats)
}
