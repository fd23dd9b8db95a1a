// Package watcher notices changes to a single file, such as the saved
// session being replaced or removed by another cw process.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Kind classifies a file event.
type Kind int

const (
	Changed Kind = iota // Created or rewritten
	Removed
)

func (k Kind) String() string {
	if k == Removed {
		return "removed"
	}
	return "changed"
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnEvent sets the callback invoked after each debounced event.
func WithOnEvent(fn func(Kind)) WatcherOption {
	return func(w *Watcher) {
		w.onEvent = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// Watcher monitors a file using fsnotify on its directory, falling back to
// stat polling when fsnotify is unavailable.
type Watcher struct {
	path             string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onEvent          func(Kind)
	onError          func(error)
	forcePoll        bool

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	lastMtime   time.Time
	lastSize    int64
	exists      bool

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.RWMutex
	events  chan Kind
}

// NewWatcher creates a new file watcher for the given path. The file does
// not need to exist yet.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onEvent:          func(Kind) {},
		onError:          func(error) {},
		events:           make(chan Kind, 1),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching the file.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.useFallback = w.forcePoll || envBool("CW_FORCE_POLL")

	info, err := os.Stat(w.path)
	switch {
	case err == nil:
		w.lastMtime, w.lastSize, w.exists = info.ModTime(), info.Size(), true
	case os.IsPermission(err):
		w.cancel()
		return ErrPermission
	default:
		w.lastMtime, w.lastSize, w.exists = time.Time{}, 0, false
	}

	if !w.useFallback {
		// The directory is watched, not the file, so atomic replaces and
		// re-creation after removal are still seen.
		dir := filepath.Dir(w.path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			w.useFallback = true
		} else if fsw, err := fsnotify.NewWatcher(); err != nil {
			w.useFallback = true
		} else if err := fsw.Add(dir); err != nil {
			fsw.Close()
			w.useFallback = true
		} else {
			w.fsWatcher = fsw
			go w.watchFsnotify(fsw)
		}
	}

	if w.useFallback {
		go w.watchPolling()
	}

	w.started = true
	return nil
}

// Stop stops watching. The events channel stays open so a pending receive
// in a tea.Cmd does not spin.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Events returns a channel that receives debounced events. Only the latest
// undelivered event is kept.
func (w *Watcher) Events() <-chan Kind {
	return w.events
}

// Path returns the watched file path.
func (w *Watcher) Path() string {
	return w.path
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) watchFsnotify(fsw *fsnotify.Watcher) {
	target := filepath.Base(w.path)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			// The final state decides the kind, since a rename-over shows
			// up as Remove/Rename followed by Create.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.debouncer.Trigger(w.notifyFromDisk)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil && !os.IsNotExist(err) {
				if os.IsPermission(err) {
					err = ErrPermission
				}
				w.onError(err)
				continue
			}

			w.mu.Lock()
			var changed bool
			if err != nil {
				changed = w.exists
				w.exists, w.lastMtime, w.lastSize = false, time.Time{}, 0
			} else {
				changed = !w.exists || info.ModTime().After(w.lastMtime) || info.Size() != w.lastSize
				w.exists, w.lastMtime, w.lastSize = true, info.ModTime(), info.Size()
			}
			w.mu.Unlock()

			if changed {
				w.debouncer.Trigger(w.notifyFromDisk)
			}
		}
	}
}

// notifyFromDisk classifies the current state of the file and delivers it.
func (w *Watcher) notifyFromDisk() {
	info, err := os.Stat(w.path)

	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	kind := Changed
	if err != nil {
		kind = Removed
		w.exists, w.lastMtime, w.lastSize = false, time.Time{}, 0
	} else {
		w.exists, w.lastMtime, w.lastSize = true, info.ModTime(), info.Size()
	}
	w.mu.Unlock()

	w.onEvent(kind)

	// Keep only the newest event for slow receivers.
	select {
	case w.events <- kind:
	default:
		select {
		case <-w.events:
		default:
		}
		select {
		case w.events <- kind:
		default:
		}
	}
}
