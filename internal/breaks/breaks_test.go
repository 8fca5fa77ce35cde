package breaks

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tobyns/focusgate/internal/state"
	"github.com/tobyns/focusgate/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *state.Records) {
	t.Helper()
	s, err := store.OpenFile(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	rec := state.NewRecords(s)
	return NewRegistry(rec), rec
}

func TestGrantAndExempt(t *testing.T) {
	reg, _ := newTestRegistry(t)
	now := time.Now()

	exempt, err := reg.IsExempt("facebook.com", now)
	if err != nil {
		t.Fatalf("isExempt failed: %v", err)
	}
	if exempt {
		t.Error("expected no exemption on fresh state")
	}

	if err := reg.Grant("facebook.com", 5*time.Minute, now); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	exempt, err = reg.IsExempt("facebook.com", now.Add(4*time.Minute))
	if err != nil {
		t.Fatalf("isExempt failed: %v", err)
	}
	if !exempt {
		t.Error("expected exemption inside break window")
	}

	// Other domains are unaffected.
	exempt, _ = reg.IsExempt("reddit.com", now)
	if exempt {
		t.Error("expected no exemption for other domain")
	}
}

func TestExpiredEntryRemovedLazily(t *testing.T) {
	reg, rec := newTestRegistry(t)
	now := time.Now()

	if err := reg.Grant("facebook.com", 5*time.Minute, now); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	// Exactly at expiry the break is over (exempt iff now < expiry).
	exempt, err := reg.IsExempt("facebook.com", now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("isExempt failed: %v", err)
	}
	if exempt {
		t.Error("expected exemption to end at expiry")
	}

	entries, err := rec.TemporaryBreaks()
	if err != nil {
		t.Fatalf("breaks failed: %v", err)
	}
	if _, ok := entries["facebook.com"]; ok {
		t.Error("expected expired entry deleted by the observing call")
	}
}

func TestGrantOverwritesExpiry(t *testing.T) {
	reg, _ := newTestRegistry(t)
	now := time.Now()

	if err := reg.Grant("facebook.com", 1*time.Minute, now); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := reg.Grant("facebook.com", 30*time.Minute, now); err != nil {
		t.Fatalf("re-grant failed: %v", err)
	}

	exempt, err := reg.IsExempt("facebook.com", now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("isExempt failed: %v", err)
	}
	if !exempt {
		t.Error("expected re-grant to extend the exemption")
	}
}

func TestActiveFiltersExpired(t *testing.T) {
	reg, _ := newTestRegistry(t)
	now := time.Now()

	reg.Grant("facebook.com", 5*time.Minute, now)
	reg.Grant("reddit.com", 1*time.Minute, now)

	active, err := reg.Active(now.Add(2 * time.Minute))
	if err != nil {
		t.Fatalf("active failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active break, got %d", len(active))
	}
	if _, ok := active["facebook.com"]; !ok {
		t.Error("expected facebook.com to remain active")
	}
}
