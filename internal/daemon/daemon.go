// Package daemon owns the focusgate background process: pid-file management,
// component wiring, startup recovery, and the session-end alarm handling.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tobyns/focusgate/internal/alarm"
	"github.com/tobyns/focusgate/internal/breaks"
	"github.com/tobyns/focusgate/internal/config"
	"github.com/tobyns/focusgate/internal/dashboard"
	"github.com/tobyns/focusgate/internal/engine"
	"github.com/tobyns/focusgate/internal/notify"
	"github.com/tobyns/focusgate/internal/session"
	"github.com/tobyns/focusgate/internal/state"
	"github.com/tobyns/focusgate/internal/stats"
	"github.com/tobyns/focusgate/internal/store"
)

const (
	pidFileName     = "daemon.pid"
	startedFileName = "daemon.started"

	// tickInterval drives the remaining-time push to websocket clients.
	tickInterval = time.Second
)

var (
	shutdownChan = make(chan struct{})
)

// Daemon wires the running components together.
type Daemon struct {
	config   *config.Config
	rec      *state.Records
	session  *session.Manager
	pomodoro *session.Pomodoro
	server   *dashboard.Server
	notifier notify.Notifier
}

// Start starts the daemon in the background.
func Start() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create focusgate directory: %w", err)
	}

	pidFile := filepath.Join(dir, pidFileName)

	// Check if already running
	if _, err := os.Stat(pidFile); err == nil {
		pidData, err := os.ReadFile(pidFile)
		if err != nil {
			return fmt.Errorf("failed to read PID file: %w", err)
		}

		var pid int
		if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
			process, err := os.FindProcess(pid)
			if err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("daemon is already running (PID %d)", pid)
				}
			}
		}

		// Process not running, remove stale PID file
		os.Remove(pidFile)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Start daemon in background
	cmd := exec.Command(execPath, "daemon-run")
	cmd.Dir, _ = os.Getwd()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Wait a bit for daemon to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Stop stops the daemon.
func Stop() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	pidFile := filepath.Join(dir, pidFileName)

	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("daemon is not running")
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err != nil {
		return fmt.Errorf("failed to parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	// Send SIGTERM
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	// Wait for process to exit by polling (process.Wait() doesn't work for
	// non-child processes). Check every 100ms, up to 5 seconds.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			// Process has exited
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("timeout waiting for daemon to stop")
}

// Status returns the status of the daemon.
func Status() (running bool, url string, startedAt string, err error) {
	dir, err := config.Dir()
	if err != nil {
		return false, "", "", err
	}

	pidFile := filepath.Join(dir, pidFileName)
	startedFile := filepath.Join(dir, startedFileName)

	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "", "", nil
		}
		return false, "", "", fmt.Errorf("failed to read PID file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err != nil {
		return false, "", "", fmt.Errorf("failed to parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, "", "", fmt.Errorf("failed to find process: %w", err)
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, "", "", nil
	}

	port := config.DefaultPort
	if cfg, err := config.Load(); err == nil {
		port = cfg.Port
	}
	url = fmt.Sprintf("http://localhost:%d", port)
	if startedData, err := os.ReadFile(startedFile); err == nil {
		startedAt = strings.TrimSpace(string(startedData))
	}
	return true, url, startedAt, nil
}

// Run runs the daemon (this is the entry point for the daemon process).
func Run() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create focusgate directory: %w", err)
	}

	pidFile := filepath.Join(dir, pidFileName)
	startedFile := filepath.Join(dir, startedFileName)

	// Write PID file
	pid := os.Getpid()
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer os.Remove(pidFile)

	// Record daemon start time
	startedAt := time.Now().UTC().Format(time.RFC3339Nano)
	if err := os.WriteFile(startedFile, []byte(startedAt+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write daemon start time: %w", err)
	}

	if _, err := config.EnsureExists(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	d := &Daemon{
		config:   cfg,
		rec:      state.NewRecords(st),
		notifier: notify.Desktop{},
	}

	reg := breaks.NewRegistry(d.rec)
	eng := engine.New(d.rec, reg, nil)
	alarms := alarm.NewTimerScheduler(d.onAlarm)
	defer alarms.Stop()

	d.session = session.NewManager(d.rec, alarms, stats.NewAggregator(d.rec), nil)
	d.pomodoro = session.NewPomodoro(d.session, d.rec)

	hub := dashboard.NewHub(fmt.Sprintf("http://localhost:%d", cfg.Port))
	d.server = dashboard.NewServer(cfg, d.rec, eng, reg, d.session, d.pomodoro, hub)

	// Finalize or re-arm a session that spanned the downtime before serving
	// any requests. A session that elapsed while stopped still owes its
	// pomodoro transition.
	done, err := d.session.Recover()
	if err != nil {
		return fmt.Errorf("failed to recover session state: %w", err)
	}
	if done != nil {
		d.handleElapsed(*done)
	}

	watcher := config.NewWatcher(cfg.Path(), d.onConfigReload)
	if watcher != nil {
		watcher.Start()
		defer watcher.Stop()
	}

	stopTicker := d.startTicker()
	defer stopTicker()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := d.server.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fmt.Printf("Received signal %v, shutting down...\n", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-shutdownChan:
		fmt.Println("Shutdown requested")
	}

	if err := d.server.Stop(); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	return nil
}

// Shutdown triggers a graceful shutdown.
func Shutdown() {
	close(shutdownChan)
}

// openStore opens the persistence backend selected in config.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendSQLite:
		path, err := cfg.DBPath()
		if err != nil {
			return nil, err
		}
		return store.OpenSQLite(path)
	default:
		path, err := cfg.StatePath()
		if err != nil {
			return nil, err
		}
		return store.OpenFile(path)
	}
}

// onAlarm fires when the session timer's wake-up elapses.
func (d *Daemon) onAlarm(name string) {
	if name != session.AlarmName {
		return
	}

	cur, err := d.session.Current()
	if err != nil {
		fmt.Printf("[daemon] failed to read session on wake-up: %v\n", err)
		return
	}
	if cur == nil {
		// Ended through a command between scheduling and firing.
		return
	}

	ended, err := d.session.End(cur.ID, true)
	if err != nil {
		fmt.Printf("[daemon] failed to end session %s: %v\n", cur.ID, err)
		return
	}

	d.server.Hub().Broadcast(dashboard.Event{Type: dashboard.EventSessionEnded, Data: ended})
	d.handleElapsed(ended)
}

// handleElapsed runs the pomodoro transition for an elapsed session, falling
// back to a plain completion notice when pomodoro mode is off.
func (d *Daemon) handleElapsed(ended state.FocusSession) {
	tr, err := d.pomodoro.OnSessionElapsed(ended)
	if err != nil {
		fmt.Printf("[daemon] pomodoro transition failed: %v\n", err)
		return
	}

	if tr != nil {
		d.sendNotification("Focusgate", tr.Message)
		d.server.Hub().Broadcast(dashboard.Event{Type: dashboard.EventSessionStarted, Data: tr})
		return
	}

	message := "Focus session complete. Nice work!"
	if ended.Type == state.SessionBreak {
		message = "Break is over."
	}
	d.sendNotification("Focusgate", message)
	d.server.Hub().Broadcast(dashboard.Event{Type: dashboard.EventNotice, Data: message})
}

// sendNotification delivers a desktop notification unless turned off in
// settings.
func (d *Daemon) sendNotification(title, message string) {
	settings, err := d.rec.Settings()
	if err != nil || !settings.Notifications {
		return
	}
	d.notifier.Notify(title, message)
}

// onConfigReload applies a changed config file to the running daemon.
// The listen port and store backend need a restart; everything else is
// picked up live.
func (d *Daemon) onConfigReload(newCfg *config.Config) {
	if newCfg.Port != d.config.Port {
		fmt.Printf("[daemon] port change %d -> %d requires a restart\n", d.config.Port, newCfg.Port)
	}
	if newCfg.StoreBackend != d.config.StoreBackend {
		fmt.Printf("[daemon] store backend change %q -> %q requires a restart\n", d.config.StoreBackend, newCfg.StoreBackend)
	}
	*d.config.Pomodoro = *newCfg.Pomodoro
}

// startTicker pushes the remaining-time countdown to websocket clients while
// a session is running. Returns a stop function.
func (d *Daemon) startTicker() func() {
	ticker := time.NewTicker(tickInterval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				d.tick()
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}

func (d *Daemon) tick() {
	hub := d.server.Hub()
	if hub.ClientCount() == 0 {
		return
	}

	cur, err := d.session.Current()
	if err != nil || cur == nil {
		return
	}
	remaining, err := d.session.Remaining(time.Now())
	if err != nil {
		return
	}
	hub.Broadcast(dashboard.Event{Type: dashboard.EventTick, Data: map[string]any{
		"sessionId":        cur.ID,
		"type":             cur.Type,
		"remainingSeconds": remaining,
	}})
}
