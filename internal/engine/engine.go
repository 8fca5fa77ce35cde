// Package engine composes the domain matcher, schedule evaluator, break
// registry, and blocklist into a single allow/deny verdict per navigation
// attempt.
package engine

import (
	"fmt"
	"time"

	"github.com/tobyns/focusgate/internal/blockrule"
	"github.com/tobyns/focusgate/internal/breaks"
	"github.com/tobyns/focusgate/internal/schedule"
	"github.com/tobyns/focusgate/internal/state"
)

// Verdict is the outcome of a navigation decision. Pattern is set only on a
// deny and names the blocklist entry that matched.
type Verdict struct {
	Blocked bool   `json:"blocked"`
	Domain  string `json:"domain,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// Engine is the blocking decision engine. It is stateless between calls;
// every decision reads current persisted state.
type Engine struct {
	rec    *state.Records
	breaks *breaks.Registry
	now    func() time.Time
}

// New creates an engine. now may be nil to use wall-clock time.
func New(rec *state.Records, reg *breaks.Registry, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{rec: rec, breaks: reg, now: now}
}

// Decide returns the verdict for a navigation attempt, short-circuiting in
// order: unparsable URL, global disable, schedule window, temporary break,
// blocklist match. On deny it also records the block (best-effort counters).
// Storage errors propagate; the HTTP adapter fails open on them.
func (e *Engine) Decide(rawURL string) (Verdict, error) {
	domain, err := blockrule.Normalize(rawURL)
	if err != nil {
		// Unparsable targets are non-blockable, not an error condition.
		return Verdict{}, nil
	}

	settings, err := e.rec.Settings()
	if err != nil {
		return Verdict{Domain: domain}, err
	}
	if !settings.Enabled {
		return Verdict{Domain: domain}, nil
	}

	now := e.now()

	ws, err := e.rec.Schedule()
	if err != nil {
		return Verdict{Domain: domain}, err
	}
	if !schedule.IsActive(ws, now) {
		return Verdict{Domain: domain}, nil
	}

	exempt, err := e.breaks.IsExempt(domain, now)
	if err != nil {
		return Verdict{Domain: domain}, err
	}
	if exempt {
		return Verdict{Domain: domain}, nil
	}

	sites, err := e.rec.BlockedSites()
	if err != nil {
		return Verdict{Domain: domain}, err
	}
	for i := range sites {
		if blockrule.Matches(domain, sites[i].Domain) {
			if err := e.recordBlock(sites, i); err != nil {
				return Verdict{Blocked: true, Domain: domain, Pattern: sites[i].Domain}, err
			}
			return Verdict{Blocked: true, Domain: domain, Pattern: sites[i].Domain}, nil
		}
	}

	return Verdict{Domain: domain}, nil
}

// recordBlock increments the matched entry's counter and the global total.
// The two writes are sequential, not atomic: a crash between them loses at
// most one global increment, and concurrent denies can under-count. Both are
// accepted best-effort inaccuracies for a counter.
func (e *Engine) recordBlock(sites []state.BlockedSite, idx int) error {
	sites[idx].BlockCount++
	if err := e.rec.SetBlockedSites(sites); err != nil {
		return fmt.Errorf("failed to record site block: %w", err)
	}

	stats, err := e.rec.Stats()
	if err != nil {
		return err
	}
	stats.TotalBlocks++
	if err := e.rec.SetStats(stats); err != nil {
		return fmt.Errorf("failed to record total blocks: %w", err)
	}
	return nil
}
