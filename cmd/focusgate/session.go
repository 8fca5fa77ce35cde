package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tobyns/focusgate/pkg/cli"
)

const (
	defaultSessionMinutes = 25
	defaultBreakMinutes   = 5
)

// cmdSession handles the session subcommands.
func cmdSession(style *termStyle, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: focusgate session start|end|pause|resume [minutes]")
		os.Exit(1)
	}

	c := daemonClient()

	switch args[0] {
	case "start":
		minutes := defaultSessionMinutes
		if len(args) > 1 {
			var err error
			minutes, err = strconv.Atoi(args[1])
			if err != nil || minutes <= 0 {
				fmt.Fprintf(os.Stderr, "Invalid duration: %s\n", args[1])
				os.Exit(1)
			}
		}

		var sess cli.FocusSession
		payload := map[string]any{"duration_minutes": minutes, "type": "focus"}
		if err := c.CommandInto(nil, "startSession", payload, &sess); err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		style.Success(fmt.Sprintf("Focus session started: %d minutes", sess.Duration))

	case "end":
		st, err := c.GetStatus()
		if err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		if st.CurrentSession == nil {
			style.Warn("No session is running")
			os.Exit(1)
		}
		payload := map[string]any{"session_id": st.CurrentSession.ID, "completed": false}
		if err := c.CommandInto(nil, "endSession", payload, nil); err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		style.Success("Session ended")

	case "pause":
		if err := c.CommandInto(nil, "pauseSession", nil, nil); err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		style.Success("Session paused")

	case "resume":
		if err := c.CommandInto(nil, "resumeSession", nil, nil); err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		style.Success("Session resumed")

	case "remaining":
		var result struct {
			RemainingSeconds int `json:"remaining_seconds"`
		}
		if err := c.CommandInto(nil, "getRemaining", nil, &result); err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		fmt.Println(formatSeconds(result.RemainingSeconds))

	default:
		fmt.Fprintf(os.Stderr, "Unknown session subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

// cmdPomodoro handles the pomodoro subcommands.
func cmdPomodoro(style *termStyle, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: focusgate pomodoro start|stop|skip")
		os.Exit(1)
	}

	c := daemonClient()

	switch args[0] {
	case "start":
		var tr struct {
			Message string `json:"message"`
		}
		if err := c.CommandInto(nil, "startPomodoro", nil, &tr); err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		style.Success(tr.Message)

	case "stop":
		if err := c.CommandInto(nil, "stopPomodoro", nil, nil); err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		style.Success("Pomodoro stopped")

	case "skip":
		var tr struct {
			Message string `json:"message"`
		}
		if err := c.CommandInto(nil, "skipPomodoro", nil, &tr); err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		style.Success(tr.Message)

	case "status":
		st, err := c.GetStatus()
		if err != nil {
			style.Error(err.Error())
			os.Exit(1)
		}
		p := st.Pomodoro
		if !p.Enabled {
			fmt.Println("Pomodoro mode is off")
			return
		}
		phase := "focus"
		if p.IsOnBreak {
			phase = "break"
		}
		style.KeyValue("Phase", phase)
		style.KeyValue("Cycle", fmt.Sprintf("%d (long break every %d)", p.CurrentCycle, p.SessionsUntilLongBreak))
		style.KeyValue("Completed", fmt.Sprintf("%d", p.TotalCyclesCompleted))
		style.KeyValue("Remaining", formatSeconds(st.RemainingSeconds))

	default:
		fmt.Fprintf(os.Stderr, "Unknown pomodoro subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

// cmdBreak grants a temporary exemption for a blocked site.
func cmdBreak(style *termStyle, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: focusgate break <domain> [minutes]")
		os.Exit(1)
	}

	minutes := defaultBreakMinutes
	if len(args) > 1 {
		var err error
		minutes, err = strconv.Atoi(args[1])
		if err != nil || minutes <= 0 {
			fmt.Fprintf(os.Stderr, "Invalid duration: %s\n", args[1])
			os.Exit(1)
		}
	}

	c := daemonClient()
	var result struct {
		Domain string `json:"domain"`
	}
	payload := map[string]any{"domain": args[0], "duration_minutes": minutes}
	if err := c.CommandInto(nil, "takeBreak", payload, &result); err != nil {
		style.Error(err.Error())
		os.Exit(1)
	}
	style.Success(fmt.Sprintf("%s allowed for %d minutes", result.Domain, minutes))
}

// cmdStats prints the focus statistics.
func cmdStats(style *termStyle) {
	c := daemonClient()

	st, err := c.GetStatus()
	if err != nil {
		style.Error(err.Error())
		os.Exit(1)
	}

	s := st.Stats
	style.KeyValue("Focus time", fmt.Sprintf("%dh %dm", s.TotalFocusTime/60, s.TotalFocusTime%60))
	style.KeyValue("Sessions", fmt.Sprintf("%d completed", s.SessionsCompleted))
	style.KeyValue("Blocks", fmt.Sprintf("%d", s.TotalBlocks))
	style.KeyValue("Streak", fmt.Sprintf("%d days (best %d)", s.CurrentStreak, s.LongestStreak))
	if s.LastSessionDate != "" {
		style.KeyValue("Last session", s.LastSessionDate)
	}
}
