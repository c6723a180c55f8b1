package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ReloadCallback is invoked with the new configuration after a successful
// reload. A returned error is logged; the reload itself still stands.
type ReloadCallback func(*Config) error

// ErrWatcherClosed is returned when closing an already-closed watcher.
var ErrWatcherClosed = errors.New("config: watcher already closed")

// Watcher monitors the bootstrap config file and re-applies the hot-reloadable
// parts (log level, request limits) on change. The parent directory is
// watched so atomic writes (temp file + rename) are detected, and rapid
// editor events are debounced.
type Watcher struct {
	ctx           context.Context
	cancel        context.CancelFunc
	fsWatcher     *fsnotify.Watcher
	path          string
	callbacks     []ReloadCallback
	debounceDelay time.Duration
	mu            sync.RWMutex
	closed        bool
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ctx:           ctx,
		cancel:        cancel,
		path:          absPath,
		fsWatcher:     fsWatcher,
		debounceDelay: 100 * time.Millisecond,
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		_ = fsWatcher.Close()
		cancel()
		return nil, err
	}
	return w, nil
}

// OnReload registers a callback; callbacks run in registration order.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Watch blocks processing file events until ctx is canceled. Only Write and
// Create events on the config file trigger a reload; Chmod noise from
// indexers is ignored.
func (w *Watcher) Watch(ctx context.Context) error {
	var (
		timer      *time.Timer
		timerMu    sync.Mutex
		targetFile = filepath.Base(w.path)
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != targetFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.scheduleReload(&timerMu, &timer)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) scheduleReload(timerMu *sync.Mutex, timer **time.Timer) {
	timerMu.Lock()
	defer timerMu.Unlock()

	if *timer != nil {
		(*timer).Stop()
	}
	*timer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case <-w.ctx.Done():
			return
		default:
		}
		w.triggerReload()
	})
}

func (w *Watcher) triggerReload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("failed to reload config")
		return
	}

	log.Info().Str("path", w.path).Msg("config file reloaded")

	w.mu.RLock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			log.Error().Err(err).Msg("config reload callback error")
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	w.cancel()
	return w.fsWatcher.Close()
}
