package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/tobyns/focusgate/internal/config"
	"github.com/tobyns/focusgate/internal/daemon"
	"github.com/tobyns/focusgate/pkg/cli"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	style := newTermStyle()
	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "start":
		if err := ensureConfig(style); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := daemon.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("focusgate daemon started")

	case "stop":
		if err := daemon.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("focusgate daemon stopped")

	case "status":
		cmdStatus(style)

	case "daemon-run":
		// This is the entry point for the daemon process
		if err := daemon.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon error: %v\n", err)
			os.Exit(1)
		}

	case "add":
		cmdAdd(style, args)

	case "remove":
		cmdRemove(style, args)

	case "sites":
		cmdSites(style)

	case "export":
		cmdExport(style, args)

	case "import":
		cmdImport(style, args)

	case "session":
		cmdSession(style, args)

	case "pomodoro":
		cmdPomodoro(style, args)

	case "break":
		cmdBreak(style, args)

	case "stats":
		cmdStats(style)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// ensureConfig creates the default config on first run, after asking.
func ensureConfig(style *termStyle) error {
	if config.ConfigExists() {
		return nil
	}

	path, err := config.DefaultPath()
	if err != nil {
		return err
	}

	create := true
	err = huh.NewConfirm().
		Title("No config found. Create one with defaults?").
		Description(fmt.Sprintf("A default config will be written to %s", path)).
		Affirmative("Yes, create it").
		Negative("No").
		Value(&create).
		Run()
	if err != nil {
		return err
	}
	if !create {
		return fmt.Errorf("cannot start without a config")
	}

	if _, err := config.EnsureExists(); err != nil {
		return err
	}
	style.Success(fmt.Sprintf("Created %s", path))
	return nil
}

// daemonClient returns a client for the running daemon, exiting with a hint
// when the daemon is down.
func daemonClient() *cli.Client {
	url := cli.GetDefaultURL()
	if cfg, err := config.Load(); err == nil {
		url = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	c := cli.NewDaemonClient(url)
	if !c.IsRunning() {
		fmt.Fprintln(os.Stderr, "focusgate daemon is not running. Start it with: focusgate start")
		os.Exit(1)
	}
	return c
}

func cmdStatus(style *termStyle) {
	running, url, startedAt, err := daemon.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !running {
		fmt.Println("focusgate daemon is not running")
		os.Exit(1)
	}

	fmt.Println("focusgate daemon is running")
	style.KeyValue("API", url)
	if startedAt != "" {
		style.KeyValue("Started", startedAt)
	}

	st, err := cli.NewDaemonClient(url).GetStatus()
	if err != nil {
		style.Warn(fmt.Sprintf("daemon did not answer status: %v", err))
		return
	}

	if st.Enabled {
		style.KeyValue("Blocking", style.Green("enabled"))
	} else {
		style.KeyValue("Blocking", style.Yellow("disabled"))
	}
	if st.CurrentSession != nil {
		label := st.CurrentSession.Type
		if st.Paused {
			label += " (paused)"
		}
		style.KeyValue("Session", fmt.Sprintf("%s, %s left", label, formatSeconds(st.RemainingSeconds)))
	} else {
		style.KeyValue("Session", style.Dim("none"))
	}
	style.KeyValue("Blocked sites", fmt.Sprintf("%d", len(st.BlockedSites)))
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func printUsage() {
	fmt.Println("focusgate - website blocking and focus sessions")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  focusgate <command>")
	fmt.Println()
	fmt.Println("Daemon:")
	fmt.Println("  start                     Start the daemon in background")
	fmt.Println("  stop                      Stop the daemon")
	fmt.Println("  status                    Show daemon and session status")
	fmt.Println("  daemon-run                Run the daemon in foreground (for debugging)")
	fmt.Println()
	fmt.Println("Blocklist:")
	fmt.Println("  add [domain]              Add a site to the blocklist")
	fmt.Println("  remove <domain>           Remove a site from the blocklist")
	fmt.Println("  sites                     List blocked sites")
	fmt.Println("  export <file>             Export the blocklist to a YAML file")
	fmt.Println("  import <file>             Import blocklist entries from a YAML file")
	fmt.Println()
	fmt.Println("Sessions:")
	fmt.Println("  session start [minutes]   Start a focus session (default 25)")
	fmt.Println("  session end               End the current session early")
	fmt.Println("  session pause             Pause the current session")
	fmt.Println("  session resume            Resume a paused session")
	fmt.Println("  session remaining         Print the time left as MM:SS")
	fmt.Println("  pomodoro start|stop|skip|status")
	fmt.Println("                            Control pomodoro mode")
	fmt.Println("  break <domain> [minutes]  Allow a blocked site temporarily (default 5)")
	fmt.Println("  stats                     Show focus statistics")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  focusgate add reddit.com")
	fmt.Println("  focusgate session start 50")
	fmt.Println("  focusgate break twitter.com 10")
}
