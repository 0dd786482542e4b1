// Package watcher raises an event when a registered catalog file settles
// after a change. Vendor exports are copied or rename-swapped into place, so
// raw filesystem notifications arrive in bursts while the file is still
// growing; an event fires only once the size and mtime have held still for
// the settle delay.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a file must hold still before its change
// event fires. Catalog exports of a few hundred thousand rows take several
// write bursts to land.
const DefaultSettleDelay = 250 * time.Millisecond

// Watcher monitors registered files through their parent directories, which
// survives the rename-over writes exporters and editors use. Only registered
// paths produce events; sibling files in the same directory are ignored.
type Watcher struct {
	logger      *slog.Logger
	settleDelay time.Duration
	fs          *fsnotify.Watcher

	mu      sync.Mutex
	files   map[string]struct{}       // registered file paths
	dirs    map[string]struct{}       // parent directories added to fsnotify
	pending map[string]*pendingChange // files still settling

	events   chan Event
	errors   chan error
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// pendingChange tracks a file that may still be changing.
type pendingChange struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher. A non-positive settle delay falls back to the
// default.
func New(logger *slog.Logger, settleDelay time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:      logger,
		settleDelay: settleDelay,
		fs:          fs,
		files:       make(map[string]struct{}),
		dirs:        make(map[string]struct{}),
		pending:     make(map[string]*pendingChange),
		events:      make(chan Event, 16),
		errors:      make(chan error, 4),
		done:        make(chan struct{}),
	}, nil
}

// Watch registers a file. The file does not have to exist yet; its parent
// directory does. Directories cannot be registered because catalog inputs
// are named files, not drop folders.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return fmt.Errorf("watch %s: directories are not supported, register the file itself", abs)
	}

	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[dir]; !ok {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	w.files[abs] = struct{}{}
	w.logger.Debug("watching file", "path", abs)
	return nil
}

// Start pumps filesystem notifications until the context ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.loop(ctx)

	<-ctx.Done()
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	_, registered := w.files[path]
	w.mu.Unlock()
	if !registered {
		return
	}

	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Rename-over delivers a Create for the new content right after
		// this, so a replaced file still settles into a change event.
		w.cancelPending(path)
		w.emit(Event{Type: EventRemoved, Path: path})
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		w.startSettling(path)
	}
}

// startSettling arms the settle timer for a file, restarting it when the
// file is already pending.
func (w *Watcher) startSettling(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}

	p := &pendingChange{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(w.settleDelay, func() { w.checkSettled(path) })
	w.pending[path] = p
}

// checkSettled emits the change event if the file held still through the
// settle delay, otherwise rearms the timer with the fresh size and mtime.
func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if !ok {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		w.emit(Event{Type: EventRemoved, Path: path})
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(w.settleDelay, func() { w.checkSettled(path) })
		return
	}

	delete(w.pending, path)
	w.emit(Event{
		Type:    EventChanged,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

// Events returns the channel of settled file events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop releases the watcher. Pending settle timers are cancelled; their
// events never fire.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		for _, p := range w.pending {
			p.timer.Stop()
		}
		clear(w.pending)
		w.mu.Unlock()

		w.fs.Close()
		w.wg.Wait()

		close(w.events)
		close(w.errors)
	})
	return nil
}
