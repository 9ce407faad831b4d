// This file implements hot reloading of configuration in development.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the configuration file and hot reloads it, for faster
// iteration in development. Outside development it is inert.
type Watcher struct {
	mu        sync.RWMutex
	config    Config
	callbacks []func(Config)

	logger  *zap.Logger
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopOne sync.Once
}

// NewWatcher creates a configuration watcher over the file named by
// APPSHELL_CONFIG. Hot reloading is enabled only in development.
func NewWatcher(initial Config, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		config: initial,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	path := os.Getenv("APPSHELL_CONFIG")
	if !initial.IsDevelopment() || path == "" {
		logger.Info("configuration hot reloading disabled",
			zap.String("environment", string(initial.Environment)),
		)
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = fsWatcher
	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	go w.watchLoop()

	logger.Info("configuration hot reloading enabled",
		zap.String("file", path),
	)
	return w, nil
}

// Config returns the current configuration.
func (w *Watcher) Config() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnChange registers a callback invoked on every successful reload.
func (w *Watcher) OnChange(callback func(Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOne.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

// watchLoop debounces rapid write bursts before reloading.
func (w *Watcher) watchLoop() {
	const debounceDelay = 500 * time.Millisecond
	var debounce *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Info("configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// reload re-reads the configuration, keeping the old one when the new
// one fails validation.
func (w *Watcher) reload() {
	cfg, err := Load()
	if err != nil {
		w.logger.Error("invalid configuration after reload, keeping previous",
			zap.Error(err),
		)
		return
	}

	w.mu.Lock()
	if cfg == w.config {
		w.mu.Unlock()
		w.logger.Debug("configuration unchanged after reload")
		return
	}
	w.config = cfg
	callbacks := make([]func(Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, callback := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked",
						zap.Any("panic", r),
					)
				}
			}()
			callback(cfg)
		}()
	}
	w.logger.Info("configuration reloaded",
		zap.Int("callbacksNotified", len(callbacks)),
	)
}
