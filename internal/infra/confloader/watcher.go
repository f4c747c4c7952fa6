package confloader

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a watched file must stay quiet before its
// change callbacks run.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to config files. Editors touch a file several
// times per save (truncate, write, chmod, or write-temp-and-rename), so
// events are coalesced per file and callbacks run once per burst, and only
// if the file still exists.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu        sync.RWMutex
	files     map[string]struct{}
	callbacks []func(string)

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce sets the quiet period before callbacks run.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a config file watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		files:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds path to the watch set. Its directory is watched rather than
// the file, so a file replaced by rename keeps being tracked.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Error("failed to watch config directory", "path", dir, "error", err)
		return err
	}

	w.mu.Lock()
	w.files[path] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching config file", "file", path)
	return nil
}

// OnChange registers a callback that receives the changed file's path.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start runs the event loop until Stop is called.
func (w *Watcher) Start() {
	w.logger.Info("config watcher started")

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if !w.watched(name) || !changesContent(event) {
				continue
			}
			w.logger.Debug("config file event", "file", name, "op", event.Op.String())
			pending[name] = struct{}{}
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			for name := range pending {
				delete(pending, name)
				if _, err := os.Stat(name); err != nil {
					w.logger.Warn("config file gone after change, keeping current settings", "file", name, "error", err)
					continue
				}
				w.notify(name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop ends the event loop and releases the fsnotify handle. Calls after
// the first are no-ops.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		if err != nil {
			w.logger.Error("failed to close config watcher", "error", err)
			return
		}
		w.logger.Info("config watcher stopped")
	})
	return err
}

// changesContent reports whether event may have changed the file's
// contents. Chmod alone does not.
func changesContent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

func (w *Watcher) watched(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[name]
	return ok
}

func (w *Watcher) notify(path string) {
	w.mu.RLock()
	callbacks := append(([]func(string))(nil), w.callbacks...)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(path)
	}
}
