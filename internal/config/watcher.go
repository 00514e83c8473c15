// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/valpere/PriceScrapexter/internal/utils"
)

// Watcher reloads a configuration file when it changes on disk and hands the
// new value to registered callbacks. Invalid edits are logged and skipped.
type Watcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	logger     utils.Logger
	callbacks  []func(*Config)
	mu         sync.RWMutex
	stopped    bool
	done       chan struct{}
}

// NewWatcher starts watching configPath
func NewWatcher(configPath string, logger utils.Logger) (*Watcher, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	cw := &Watcher{
		watcher:    watcher,
		configPath: abs,
		logger:     logger.WithField("component", "config-watcher"),
		done:       make(chan struct{}),
	}

	// Watch the directory; editors replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go cw.watch()

	return cw, nil
}

// OnChange registers a callback to be called when the config changes
func (cw *Watcher) OnChange(callback func(*Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

func (cw *Watcher) watch() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.configPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				cw.handleConfigChange()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warnf("config watcher error: %v", err)
		}
	}
}

func (cw *Watcher) handleConfigChange() {
	cw.mu.RLock()
	if cw.stopped {
		cw.mu.RUnlock()
		return
	}
	callbacks := make([]func(*Config), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	config, err := LoadFromFile(cw.configPath)
	if err != nil {
		cw.logger.Warnf("failed to reload config: %v", err)
		return
	}
	cw.logger.Infof("configuration reloaded from %s", cw.configPath)

	for _, callback := range callbacks {
		callback(config)
	}
}

// Close stops the watcher and waits for its goroutine to exit
func (cw *Watcher) Close() error {
	cw.mu.Lock()
	if cw.stopped {
		cw.mu.Unlock()
		return nil
	}
	cw.stopped = true
	cw.mu.Unlock()

	err := cw.watcher.Close()
	<-cw.done
	return err
}
