package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tobyns/focusgate/internal/breaks"
	"github.com/tobyns/focusgate/internal/config"
	"github.com/tobyns/focusgate/internal/engine"
	"github.com/tobyns/focusgate/internal/session"
	"github.com/tobyns/focusgate/internal/state"
	"github.com/tobyns/focusgate/internal/stats"
	"github.com/tobyns/focusgate/internal/store"
)

// noopScheduler satisfies the session manager without arming real timers.
type noopScheduler struct{}

func (noopScheduler) Schedule(name string, delay time.Duration) {}
func (noopScheduler) Cancel(name string)                        {}

func newTestServer(t *testing.T) (*httptest.Server, *state.Records) {
	t.Helper()

	st, err := store.OpenFile(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	rec := state.NewRecords(st)
	reg := breaks.NewRegistry(rec)
	eng := engine.New(rec, reg, nil)
	mgr := session.NewManager(rec, noopScheduler{}, stats.NewAggregator(rec), nil)
	pom := session.NewPomodoro(mgr, rec)
	cfg := config.CreateDefault(filepath.Join(t.TempDir(), "config.json"))

	srv := NewServer(cfg, rec, eng, reg, mgr, pom, NewHub("http://localhost:7439"))
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, rec
}

func command(t *testing.T, ts *httptest.Server, op string, payload any) (*http.Response, commandResponse) {
	t.Helper()

	req := commandRequest{Op: op}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		req.Payload = raw
	}
	body, _ := json.Marshal(req)

	resp, err := http.Post(ts.URL+"/api/command", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("command %s failed: %v", op, err)
	}
	defer resp.Body.Close()

	var cr commandResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		t.Fatalf("failed to decode response for %s: %v", op, err)
	}
	return resp, cr
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %+v", body)
	}
}

func TestUnknownOperation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, cr := command(t, ts, "frobnicate", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if cr.OK {
		t.Error("expected ok=false")
	}
	if !strings.Contains(cr.Error, "frobnicate") {
		t.Errorf("expected error to name the operation, got %q", cr.Error)
	}
}

func TestAddRemoveSite(t *testing.T) {
	ts, rec := newTestServer(t)

	resp, cr := command(t, ts, "addSite", map[string]string{"domain": "WWW.Facebook.com"})
	if resp.StatusCode != http.StatusOK || !cr.OK {
		t.Fatalf("addSite failed: %d %+v", resp.StatusCode, cr)
	}

	sites, _ := rec.BlockedSites()
	if len(sites) != 1 || sites[0].Domain != "facebook.com" {
		t.Fatalf("expected normalized facebook.com entry, got %+v", sites)
	}
	if sites[0].ID == "" {
		t.Error("expected generated site id")
	}

	// Duplicate add is rejected.
	resp, _ = command(t, ts, "addSite", map[string]string{"domain": "facebook.com"})
	if resp.StatusCode == http.StatusOK {
		t.Error("expected duplicate add to fail")
	}

	resp, cr = command(t, ts, "removeSite", map[string]string{"domain": "facebook.com"})
	if resp.StatusCode != http.StatusOK || !cr.OK {
		t.Fatalf("removeSite failed: %d %+v", resp.StatusCode, cr)
	}
	sites, _ = rec.BlockedSites()
	if len(sites) != 0 {
		t.Errorf("expected empty blocklist, got %+v", sites)
	}
}

func TestDecideBlocksAndCounts(t *testing.T) {
	ts, rec := newTestServer(t)
	command(t, ts, "addSite", map[string]string{"domain": "facebook.com"})

	resp, err := http.Get(ts.URL + "/api/decide?url=" + "https://m.facebook.com/feed")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	defer resp.Body.Close()

	var verdict engine.Verdict
	json.NewDecoder(resp.Body).Decode(&verdict)
	if !verdict.Blocked || verdict.Pattern != "facebook.com" {
		t.Errorf("expected block by facebook.com, got %+v", verdict)
	}

	st, _ := rec.Stats()
	if st.TotalBlocks != 1 {
		t.Errorf("expected 1 total block, got %d", st.TotalBlocks)
	}
}

func TestTakeBreakAllowsDecide(t *testing.T) {
	ts, _ := newTestServer(t)
	command(t, ts, "addSite", map[string]string{"domain": "reddit.com"})

	resp, cr := command(t, ts, "takeBreak", map[string]any{"domain": "reddit.com", "duration_minutes": 5})
	if resp.StatusCode != http.StatusOK || !cr.OK {
		t.Fatalf("takeBreak failed: %d %+v", resp.StatusCode, cr)
	}

	get, err := http.Get(ts.URL + "/api/decide?url=https://reddit.com/r/golang")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	defer get.Body.Close()
	var verdict engine.Verdict
	json.NewDecoder(get.Body).Decode(&verdict)
	if verdict.Blocked {
		t.Errorf("expected break to allow access, got %+v", verdict)
	}
}

func TestSessionLifecycleOverCommands(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, cr := command(t, ts, "startSession", map[string]any{"duration_minutes": 25, "type": "focus"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("startSession failed: %+v", cr)
	}
	var sess state.FocusSession
	raw, _ := json.Marshal(cr.Data)
	json.Unmarshal(raw, &sess)
	if sess.ID == "" || sess.Duration != 25 {
		t.Fatalf("unexpected session: %+v", sess)
	}

	resp, cr = command(t, ts, "getRemaining", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("getRemaining failed: %+v", cr)
	}

	resp, _ = command(t, ts, "pauseSession", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pauseSession failed: %d", resp.StatusCode)
	}
	resp, _ = command(t, ts, "resumeSession", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resumeSession failed: %d", resp.StatusCode)
	}

	resp, cr = command(t, ts, "endSession", map[string]any{"session_id": sess.ID, "completed": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("endSession failed: %+v", cr)
	}

	// Ending again conflicts.
	resp, _ = command(t, ts, "endSession", map[string]any{"session_id": sess.ID, "completed": true})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on double end, got %d", resp.StatusCode)
	}
}

func TestScheduleSlotValidation(t *testing.T) {
	ts, rec := newTestServer(t)

	resp, cr := command(t, ts, "addScheduleSlot", map[string]any{"day": 9, "start_time": "09:00", "end_time": "17:00"})
	if resp.StatusCode == http.StatusOK {
		t.Errorf("expected invalid day rejected, got %+v", cr)
	}

	resp, cr = command(t, ts, "addScheduleSlot", map[string]any{"day": 1, "start_time": "9:00", "end_time": "17:00", "enabled": true})
	if resp.StatusCode != http.StatusOK || !cr.OK {
		t.Fatalf("addScheduleSlot failed: %d %+v", resp.StatusCode, cr)
	}

	ws, _ := rec.Schedule()
	if len(ws.Slots) != 1 || ws.Slots[0].ID == "" {
		t.Errorf("expected stored slot with generated id, got %+v", ws.Slots)
	}

	_, slotResp := command(t, ts, "getSchedule", nil)
	if !slotResp.OK {
		t.Errorf("getSchedule failed: %+v", slotResp)
	}

	resp, _ = command(t, ts, "removeScheduleSlot", map[string]string{"id": ws.Slots[0].ID})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("removeScheduleSlot failed: %d", resp.StatusCode)
	}
}

func TestStatusSnapshot(t *testing.T) {
	ts, _ := newTestServer(t)
	command(t, ts, "addSite", map[string]string{"domain": "twitter.com"})
	command(t, ts, "startSession", map[string]any{"duration_minutes": 25, "type": "focus"})

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	defer resp.Body.Close()

	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if !st.Enabled {
		t.Error("expected blocking enabled by default")
	}
	if st.CurrentSession == nil {
		t.Error("expected current session in status")
	}
	if len(st.BlockedSites) != 1 {
		t.Errorf("expected 1 blocked site, got %d", len(st.BlockedSites))
	}
	if st.RemainingSeconds <= 0 || st.RemainingSeconds > 25*60 {
		t.Errorf("unexpected remaining seconds: %d", st.RemainingSeconds)
	}
}

func TestToggleEnabled(t *testing.T) {
	ts, rec := newTestServer(t)

	_, cr := command(t, ts, "toggleEnabled", nil)
	if !cr.OK {
		t.Fatalf("toggleEnabled failed: %+v", cr)
	}
	settings, _ := rec.Settings()
	if settings.Enabled {
		t.Error("expected blocking disabled after toggle")
	}

	command(t, ts, "toggleEnabled", nil)
	settings, _ = rec.Settings()
	if !settings.Enabled {
		t.Error("expected blocking re-enabled after second toggle")
	}
}

func TestCORSRejectsForeignOrigin(t *testing.T) {
	ts, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign origin, got %d", resp.StatusCode)
	}
}

func TestDecideRequiresURL(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/api/decide", ts.URL))
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without url param, got %d", resp.StatusCode)
	}
}
