package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client implements DaemonClient for communicating with the focusgate daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewDaemonClient creates a new daemon client.
func NewDaemonClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetDefaultURL returns the default daemon URL.
func GetDefaultURL() string {
	return "http://localhost:7439"
}

// IsRunning checks if the daemon is running.
func (c *Client) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/healthz", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// GetStatus fetches the daemon state snapshot.
func (c *Client) GetStatus() (*Status, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, string(body))
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}

	return &status, nil
}

// Decide asks the daemon for an allow/deny verdict on a URL.
func (c *Client) Decide(ctx context.Context, rawURL string) (*Verdict, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	endpoint := c.baseURL + "/api/decide?url=" + url.QueryEscape(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, string(body))
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}

	return &verdict, nil
}

// Command sends an operation envelope to /api/command and returns the raw
// data field. Daemon-side errors come back as Go errors.
func (c *Client) Command(ctx context.Context, op string, payload any) (json.RawMessage, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	envelope := struct {
		Op      string `json:"op"`
		Payload any    `json:"payload,omitempty"`
	}{Op: op, Payload: payload}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/command", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	var cr struct {
		OK    bool            `json:"ok"`
		Data  json.RawMessage `json:"data,omitempty"`
		Error string          `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("daemon returned status %d: failed to decode response: %v", resp.StatusCode, err)
	}
	if !cr.OK {
		if cr.Error == "" {
			cr.Error = fmt.Sprintf("daemon returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%s", cr.Error)
	}

	return cr.Data, nil
}

// CommandInto runs Command and decodes the data field into out.
func (c *Client) CommandInto(ctx context.Context, op string, payload any, out any) error {
	data, err := c.Command(ctx, op, payload)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// Types

// Verdict is the allow/deny answer for one navigation attempt.
type Verdict struct {
	Blocked bool   `json:"blocked"`
	Domain  string `json:"domain,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// BlockedSite is a blocklist entry.
type BlockedSite struct {
	ID         string `json:"id"`
	Domain     string `json:"domain"`
	Category   string `json:"category,omitempty"`
	CreatedAt  string `json:"created_at"`
	BlockCount int    `json:"block_count"`
}

// FocusSession is one focus or break session.
type FocusSession struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
	Duration  int    `json:"duration"`
	Completed bool   `json:"completed"`
	Type      string `json:"type"`
}

// PomodoroState is the pomodoro cycle position.
type PomodoroState struct {
	Enabled                bool `json:"enabled"`
	WorkDuration           int  `json:"work_duration"`
	BreakDuration          int  `json:"break_duration"`
	LongBreakDuration      int  `json:"long_break_duration"`
	SessionsUntilLongBreak int  `json:"sessions_until_long_break"`
	CurrentCycle           int  `json:"current_cycle"`
	IsOnBreak              bool `json:"is_on_break"`
	TotalCyclesCompleted   int  `json:"total_cycles_completed"`
}

// Stats are the lifetime usage counters.
type Stats struct {
	TotalFocusTime    int    `json:"total_focus_time"`
	TotalBlocks       int    `json:"total_blocks"`
	CurrentStreak     int    `json:"current_streak"`
	LongestStreak     int    `json:"longest_streak"`
	SessionsCompleted int    `json:"sessions_completed"`
	LastSessionDate   string `json:"last_session_date,omitempty"`
}

// ScheduleSlot is one day/time window in the weekly schedule.
type ScheduleSlot struct {
	ID        string `json:"id"`
	Day       int    `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Enabled   bool   `json:"enabled"`
}

// WeeklySchedule gates when blocking is in effect.
type WeeklySchedule struct {
	Enabled bool           `json:"enabled"`
	Slots   []ScheduleSlot `json:"slots"`
}

// Status is the daemon state snapshot.
type Status struct {
	Enabled          bool              `json:"enabled"`
	DailyGoalMinutes int               `json:"daily_goal_minutes,omitempty"`
	ScheduleActive   bool              `json:"schedule_active"`
	CurrentSession   *FocusSession     `json:"current_session"`
	Paused           bool              `json:"paused"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Pomodoro         PomodoroState     `json:"pomodoro"`
	Stats            Stats             `json:"stats"`
	ActiveBreaks     map[string]string `json:"active_breaks"`
	BlockedSites     []BlockedSite     `json:"blocked_sites"`
}
