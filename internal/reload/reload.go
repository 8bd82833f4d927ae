// Package reload keeps a tracefmt.Formatter in sync with its settings file.
package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bjaus/tracefmt"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads the settings file on change and publishes a new
// Formatter. Invalid files keep the previous one.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	current  atomic.Pointer[tracefmt.Formatter]
	cancel   context.CancelFunc
	done     chan struct{}
}

// New loads path and prepares a watcher for it. The file must be valid.
func New(path string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	path = filepath.Clean(path)
	w := &Watcher{path: path, debounce: DefaultDebounce, log: log}
	if err := w.Reload(); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors often replace the file by rename.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	w.watcher = fw
	return w, nil
}

// SetDebounce changes the debounce delay. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Current returns the active formatter.
func (w *Watcher) Current() *tracefmt.Formatter { return w.current.Load() }

// Format formats text with the active formatter.
func (w *Watcher) Format(text string) string { return w.Current().Format(text) }

// Reload reads the settings file and swaps in a new formatter.
func (w *Watcher) Reload() error {
	s, err := tracefmt.LoadSettings(w.path)
	if err != nil {
		return err
	}
	opts, err := s.Options()
	if err != nil {
		return err
	}
	opts.Logger = w.log
	f, err := tracefmt.New(opts)
	if err != nil {
		return err
	}
	w.current.Store(f)
	return nil
}

// Start watches for changes until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("settings watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				w.log.Warn("settings reload failed, keeping previous", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.log.Info("settings reloaded", zap.String("path", w.path))
		}
	}
}

// Close stops watching and releases the underlying watcher.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	return w.watcher.Close()
}
