package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tobyns/focusgate/internal/blockrule"
	"github.com/tobyns/focusgate/internal/schedule"
	"github.com/tobyns/focusgate/internal/session"
	"github.com/tobyns/focusgate/internal/state"
	"github.com/tobyns/focusgate/internal/version"
)

// ErrUnknownOperation is returned by the command dispatcher for an op name it
// does not recognize. The response echoes the offending name.
var ErrUnknownOperation = errors.New("unknown operation")

// commandRequest is the envelope for POST /api/command.
type commandRequest struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// commandResponse is the envelope for command results.
type commandResponse struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleHealthz reports daemon liveness and version.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// statusResponse is the aggregate state snapshot for GET /api/status.
type statusResponse struct {
	Enabled          bool                 `json:"enabled"`
	DailyGoalMinutes int                  `json:"daily_goal_minutes,omitempty"`
	ScheduleActive   bool                 `json:"schedule_active"`
	CurrentSession   *state.FocusSession  `json:"current_session"`
	Paused           bool                 `json:"paused"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Pomodoro         state.PomodoroState  `json:"pomodoro"`
	Stats            state.Stats          `json:"stats"`
	ActiveBreaks     map[string]time.Time `json:"active_breaks"`
	BlockedSites     []state.BlockedSite  `json:"blocked_sites"`
}

// handleStatus returns a snapshot of everything a client needs to render
// the current state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp, err := s.buildStatus()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read state: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) buildStatus() (*statusResponse, error) {
	now := time.Now()

	settings, err := s.rec.Settings()
	if err != nil {
		return nil, err
	}
	ws, err := s.rec.Schedule()
	if err != nil {
		return nil, err
	}
	cur, err := s.session.Current()
	if err != nil {
		return nil, err
	}
	paused, err := s.rec.PausedSession()
	if err != nil {
		return nil, err
	}
	remaining, err := s.session.Remaining(now)
	if err != nil {
		return nil, err
	}
	ps, err := s.rec.PomodoroState()
	if err != nil {
		return nil, err
	}
	st, err := s.rec.Stats()
	if err != nil {
		return nil, err
	}
	active, err := s.breaks.Active(now)
	if err != nil {
		return nil, err
	}
	sites, err := s.rec.BlockedSites()
	if err != nil {
		return nil, err
	}

	return &statusResponse{
		Enabled:          settings.Enabled,
		DailyGoalMinutes: settings.DailyGoalMinutes,
		ScheduleActive:   schedule.IsActive(ws, now),
		CurrentSession:   cur,
		Paused:           paused != nil,
		RemainingSeconds: remaining,
		Pomodoro:         ps,
		Stats:            st,
		ActiveBreaks:     active,
		BlockedSites:     sites,
	}, nil
}

// handleDecide answers the per-navigation allow/deny question:
// GET /api/decide?url=<raw url>. Storage failures fail open so a broken
// state file never locks the user out of the web.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, "url parameter is required", http.StatusBadRequest)
		return
	}

	verdict, err := s.engine.Decide(rawURL)
	if err != nil {
		fmt.Printf("[dashboard] decide failed open for %q: %v\n", rawURL, err)
		verdict.Blocked = false
	}
	if verdict.Blocked {
		s.hub.Broadcast(Event{
			Type: EventBlocked,
			Data: verdict,
		})
	}
	writeJSON(w, http.StatusOK, verdict)
}

// handleCommand dispatches POST /api/command envelopes to the matching
// operation.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	data, err := s.dispatch(req.Op, req.Payload)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrUnknownOperation):
			status = http.StatusBadRequest
		case errors.Is(err, session.ErrNoActiveSession),
			errors.Is(err, session.ErrSessionNotFound),
			errors.Is(err, session.ErrNotPaused),
			errors.Is(err, session.ErrSessionAlreadyEnded):
			status = http.StatusConflict
		}
		writeJSON(w, status, commandResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{OK: true, Data: data})
}

func (s *Server) dispatch(op string, payload json.RawMessage) (any, error) {
	switch op {
	case "getStatus":
		return s.buildStatus()
	case "toggleEnabled":
		return s.opToggleEnabled()
	case "updateSettings":
		return s.opUpdateSettings(payload)
	case "startSession":
		return s.opStartSession(payload)
	case "endSession":
		return s.opEndSession(payload)
	case "pauseSession":
		return nil, s.session.Pause()
	case "resumeSession":
		return nil, s.session.Resume()
	case "getRemaining":
		return s.opGetRemaining()
	case "startPomodoro":
		return s.opStartPomodoro(payload)
	case "stopPomodoro":
		return nil, s.pomodoro.Stop()
	case "skipPomodoro":
		return s.opSkipPomodoro()
	case "addSite":
		return s.opAddSite(payload)
	case "removeSite":
		return s.opRemoveSite(payload)
	case "getSites":
		return s.rec.BlockedSites()
	case "getSchedule":
		return s.rec.Schedule()
	case "updateSchedule":
		return s.opUpdateSchedule(payload)
	case "addScheduleSlot":
		return s.opAddScheduleSlot(payload)
	case "removeScheduleSlot":
		return s.opRemoveScheduleSlot(payload)
	case "takeBreak":
		return s.opTakeBreak(payload)
	case "getHistory":
		return s.rec.History()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

func decodePayload(payload json.RawMessage, out any) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func (s *Server) opToggleEnabled() (any, error) {
	settings, err := s.rec.Settings()
	if err != nil {
		return nil, err
	}
	settings.Enabled = !settings.Enabled
	if err := s.rec.SetSettings(settings); err != nil {
		return nil, err
	}
	s.hub.Broadcast(Event{Type: EventSettings, Data: settings})
	return settings, nil
}

func (s *Server) opUpdateSettings(payload json.RawMessage) (any, error) {
	var settings state.Settings
	if err := decodePayload(payload, &settings); err != nil {
		return nil, err
	}
	if err := s.rec.SetSettings(settings); err != nil {
		return nil, err
	}
	s.hub.Broadcast(Event{Type: EventSettings, Data: settings})
	return settings, nil
}

func (s *Server) opStartSession(payload json.RawMessage) (any, error) {
	var p struct {
		DurationMinutes int    `json:"duration_minutes"`
		Type            string `json:"type"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if p.Type == "" {
		p.Type = state.SessionFocus
	}
	sess, err := s.session.Start(p.DurationMinutes, p.Type)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(Event{Type: EventSessionStarted, Data: sess})
	return sess, nil
}

func (s *Server) opEndSession(payload json.RawMessage) (any, error) {
	var p struct {
		SessionID string `json:"session_id"`
		Completed bool   `json:"completed"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	sess, err := s.session.End(p.SessionID, p.Completed)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(Event{Type: EventSessionEnded, Data: sess})
	return sess, nil
}

func (s *Server) opGetRemaining() (any, error) {
	remaining, err := s.session.Remaining(time.Now())
	if err != nil {
		return nil, err
	}
	return map[string]int{"remaining_seconds": remaining}, nil
}

func (s *Server) opStartPomodoro(payload json.RawMessage) (any, error) {
	p := struct {
		WorkMinutes            int `json:"work_minutes"`
		BreakMinutes           int `json:"break_minutes"`
		LongBreakMinutes       int `json:"long_break_minutes"`
		SessionsUntilLongBreak int `json:"sessions_until_long_break"`
	}{
		WorkMinutes:            s.config.Pomodoro.WorkMinutes,
		BreakMinutes:           s.config.Pomodoro.BreakMinutes,
		LongBreakMinutes:       s.config.Pomodoro.LongBreakMinutes,
		SessionsUntilLongBreak: s.config.Pomodoro.SessionsUntilLongBreak,
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
	}

	tr, err := s.pomodoro.Start(p.WorkMinutes, p.BreakMinutes, p.LongBreakMinutes, p.SessionsUntilLongBreak)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(Event{Type: EventSessionStarted, Data: tr})
	return tr, nil
}

func (s *Server) opSkipPomodoro() (any, error) {
	tr, err := s.pomodoro.Skip()
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(Event{Type: EventSessionStarted, Data: tr})
	return tr, nil
}

func (s *Server) opAddSite(payload json.RawMessage) (any, error) {
	var p struct {
		Domain   string `json:"domain"`
		Category string `json:"category,omitempty"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	pattern := normalizePattern(p.Domain)
	if pattern == "" {
		return nil, fmt.Errorf("domain is required")
	}

	sites, err := s.rec.BlockedSites()
	if err != nil {
		return nil, err
	}
	for _, site := range sites {
		if site.Domain == pattern {
			return nil, fmt.Errorf("%s is already blocked", pattern)
		}
	}

	site := state.BlockedSite{
		ID:        uuid.New().String(),
		Domain:    pattern,
		Category:  p.Category,
		CreatedAt: time.Now(),
	}
	sites = append(sites, site)
	if err := s.rec.SetBlockedSites(sites); err != nil {
		return nil, err
	}
	s.hub.Broadcast(Event{Type: EventSites, Data: sites})
	return site, nil
}

func (s *Server) opRemoveSite(payload json.RawMessage) (any, error) {
	var p struct {
		Domain string `json:"domain,omitempty"`
		ID     string `json:"id,omitempty"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	pattern := normalizePattern(p.Domain)

	sites, err := s.rec.BlockedSites()
	if err != nil {
		return nil, err
	}
	for i, site := range sites {
		if (p.ID != "" && site.ID == p.ID) || (pattern != "" && site.Domain == pattern) {
			removed := site
			sites = append(sites[:i], sites[i+1:]...)
			if err := s.rec.SetBlockedSites(sites); err != nil {
				return nil, err
			}
			s.hub.Broadcast(Event{Type: EventSites, Data: sites})
			return removed, nil
		}
	}
	name := pattern
	if name == "" {
		name = p.ID
	}
	return nil, fmt.Errorf("site not found: %s", name)
}

func (s *Server) opUpdateSchedule(payload json.RawMessage) (any, error) {
	var ws state.WeeklySchedule
	if err := decodePayload(payload, &ws); err != nil {
		return nil, err
	}
	for i := range ws.Slots {
		if err := validateSlot(&ws.Slots[i]); err != nil {
			return nil, err
		}
	}
	if err := s.rec.SetSchedule(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *Server) opAddScheduleSlot(payload json.RawMessage) (any, error) {
	var slot state.ScheduleSlot
	if err := decodePayload(payload, &slot); err != nil {
		return nil, err
	}
	if err := validateSlot(&slot); err != nil {
		return nil, err
	}
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}

	ws, err := s.rec.Schedule()
	if err != nil {
		return nil, err
	}
	ws.Slots = append(ws.Slots, slot)
	if err := s.rec.SetSchedule(ws); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *Server) opRemoveScheduleSlot(payload json.RawMessage) (any, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}

	ws, err := s.rec.Schedule()
	if err != nil {
		return nil, err
	}
	for i, slot := range ws.Slots {
		if slot.ID == p.ID {
			ws.Slots = append(ws.Slots[:i], ws.Slots[i+1:]...)
			if err := s.rec.SetSchedule(ws); err != nil {
				return nil, err
			}
			return ws, nil
		}
	}
	return nil, fmt.Errorf("schedule slot not found: %s", p.ID)
}

func (s *Server) opTakeBreak(payload json.RawMessage) (any, error) {
	var p struct {
		Domain          string `json:"domain"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	domain := normalizePattern(p.Domain)
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if p.DurationMinutes <= 0 {
		return nil, fmt.Errorf("break duration must be positive, got %d", p.DurationMinutes)
	}

	now := time.Now()
	if err := s.breaks.Grant(domain, time.Duration(p.DurationMinutes)*time.Minute, now); err != nil {
		return nil, err
	}
	return map[string]any{
		"domain":     domain,
		"expires_at": now.Add(time.Duration(p.DurationMinutes) * time.Minute),
	}, nil
}

// normalizePattern cleans a user-supplied domain or URL into a blocklist
// pattern. Full URLs are reduced to their host; wildcards pass through.
func normalizePattern(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		if domain, err := blockrule.Normalize(raw); err == nil {
			return domain
		}
	}
	return strings.TrimPrefix(raw, "www.")
}

func validateSlot(slot *state.ScheduleSlot) error {
	if slot.Day < 0 || slot.Day > 6 {
		return fmt.Errorf("invalid day %d, expected 0 (Sunday) through 6 (Saturday)", slot.Day)
	}
	if !validClock(slot.StartTime) || !validClock(slot.EndTime) {
		return fmt.Errorf("invalid time range %s-%s, expected HH:MM", slot.StartTime, slot.EndTime)
	}
	return nil
}

func validClock(s string) bool {
	if _, err := time.Parse("15:04", s); err == nil {
		return true
	}
	// Accept single-digit hours like "9:00".
	_, err := time.Parse("3:04", s)
	return err == nil
}
