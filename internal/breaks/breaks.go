// Package breaks tracks temporary per-domain exemptions from blocking.
package breaks

import (
	"time"

	"github.com/tobyns/focusgate/internal/state"
)

// Registry reads and writes the temporary-breaks map through the store.
// Expired entries are removed lazily by the evaluation that observes them;
// there is no background sweep.
type Registry struct {
	rec *state.Records
}

// NewRegistry creates a registry over the given records.
func NewRegistry(rec *state.Records) *Registry {
	return &Registry{rec: rec}
}

// IsExempt reports whether domain currently has an unexpired break. If the
// entry exists but has expired, it is deleted in the same call.
func (r *Registry) IsExempt(domain string, now time.Time) (bool, error) {
	entries, err := r.rec.TemporaryBreaks()
	if err != nil {
		return false, err
	}

	expiry, ok := entries[domain]
	if !ok {
		return false, nil
	}
	if now.Before(expiry) {
		return true, nil
	}

	delete(entries, domain)
	if err := r.rec.SetTemporaryBreaks(entries); err != nil {
		return false, err
	}
	return false, nil
}

// Grant writes or overwrites a break for domain expiring at now + d.
func (r *Registry) Grant(domain string, d time.Duration, now time.Time) error {
	entries, err := r.rec.TemporaryBreaks()
	if err != nil {
		return err
	}
	entries[domain] = now.Add(d)
	return r.rec.SetTemporaryBreaks(entries)
}

// Active returns the unexpired entries, for status reporting. It does not
// mutate the stored map.
func (r *Registry) Active(now time.Time) (map[string]time.Time, error) {
	entries, err := r.rec.TemporaryBreaks()
	if err != nil {
		return nil, err
	}
	active := make(map[string]time.Time, len(entries))
	for domain, expiry := range entries {
		if now.Before(expiry) {
			active[domain] = expiry
		}
	}
	return active, nil
}
