package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inercia/qbconnect/internal/logging"
)

// DebounceDelay is the default delay for coalescing file system events.
// Editors and rotation tooling often produce several events per save.
const DebounceDelay = 100 * time.Millisecond

// TicketWatcher monitors a connection-ticket file and reports its new
// contents whenever it changes. Callers typically forward the value to the
// client's SetConnectionTicket, which clears the current session so that
// connection identity and session identity stay coupled under rotation.
//
// The parent directory is watched rather than the file itself, so atomic
// replace-by-rename (the usual rotation pattern) is picked up too.
type TicketWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(ticket string)
	logger   *slog.Logger

	debounce  time.Duration
	debounceMu sync.Mutex
	timer     *time.Timer

	done    chan struct{}
	stopped chan struct{}
}

// NewTicketWatcher creates a watcher for the ticket file at path. Call
// Start to begin watching and Close when done.
func NewTicketWatcher(path string, onChange func(ticket string)) (*TicketWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &TicketWatcher{
		watcher:  watcher,
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logging.Watcher(),
		debounce: DebounceDelay,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// SetDebounceDelay overrides the event-coalescing delay. Must be called
// before Start.
func (w *TicketWatcher) SetDebounceDelay(d time.Duration) {
	w.debounce = d
}

// Start begins watching the ticket file's directory.
func (w *TicketWatcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	go w.loop()
	w.logger.Debug("watching connection ticket file", "path", w.path)
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *TicketWatcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	<-w.stopped
	return err
}

func (w *TicketWatcher) loop() {
	defer close(w.stopped)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// schedule arms (or re-arms) the debounce timer.
func (w *TicketWatcher) schedule() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

// fire reads the ticket file and notifies the callback.
func (w *TicketWatcher) fire() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("read connection ticket file", "path", w.path, "error", err)
		return
	}
	ticket := strings.TrimSpace(string(data))
	if ticket == "" {
		w.logger.Warn("connection ticket file is empty", "path", w.path)
		return
	}
	w.logger.Info("connection ticket rotated", "path", w.path)
	w.onChange(ticket)
}
