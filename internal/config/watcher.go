package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses editor save bursts (write + chmod + rename) into a
// single reload.
const watchDebounce = 250 * time.Millisecond

// Watcher watches the config file for changes and triggers a debounced
// reload callback.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string

	// onReload receives the freshly loaded config.
	onReload func(*Config)

	debounceTimer   *time.Timer
	debounceTimerMu sync.Mutex

	// stopCh signals the event loop to exit.
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a config file watcher. Returns nil if the watcher
// cannot be created; config reload is a convenience, not a requirement.
func NewWatcher(path string, onReload func(*Config)) *Watcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Printf("[config-watcher] failed to create watcher: %v\n", err)
		return nil
	}

	// Watch the directory, not the file: editors replace the file on save,
	// which drops a watch placed on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		fmt.Printf("[config-watcher] failed to watch %s: %v\n", filepath.Dir(path), err)
		w.Close()
		return nil
	}

	return &Watcher{
		watcher:  w,
		path:     path,
		onReload: onReload,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the event loop goroutine.
func (cw *Watcher) Start() {
	go cw.eventLoop()
	fmt.Println("[config-watcher] started")
}

// Stop closes the watcher and cancels any pending reload.
// Safe to call multiple times.
func (cw *Watcher) Stop() {
	cw.stopOnce.Do(func() {
		close(cw.stopCh)
		cw.watcher.Close()

		cw.debounceTimerMu.Lock()
		if cw.debounceTimer != nil {
			cw.debounceTimer.Stop()
		}
		cw.debounceTimerMu.Unlock()

		fmt.Println("[config-watcher] stopped")
	})
}

func (cw *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleEvent(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			fmt.Printf("[config-watcher] error: %v\n", err)
		case <-cw.stopCh:
			return
		}
	}
}

func (cw *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(cw.path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	cw.resetDebounce()
}

func (cw *Watcher) resetDebounce() {
	cw.debounceTimerMu.Lock()
	defer cw.debounceTimerMu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Reset(watchDebounce)
		return
	}
	cw.debounceTimer = time.AfterFunc(watchDebounce, cw.reload)
}

// reload re-reads the config file and hands it to the callback. Invalid or
// missing files are logged and ignored so a half-saved edit never takes
// down a running daemon.
func (cw *Watcher) reload() {
	cfg, err := LoadFrom(cw.path)
	if err != nil {
		fmt.Printf("[config-watcher] reload skipped: %v\n", err)
		return
	}

	fmt.Printf("[config-watcher] reloaded %s\n", cw.path)
	if cw.onReload != nil {
		cw.onReload(cfg)
	}
}
