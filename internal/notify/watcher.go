// Package notify reloads graph fixtures when their files change on disk.
package notify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/scrypster/seedgraph/internal/loader"
	"github.com/scrypster/seedgraph/pkg/types"
)

// ReloadFunc receives the elements of a fixture file that was created or
// written.
type ReloadFunc func(path string, elements []types.Element)

// FixtureWatcher watches fixture files and directories and dispatches
// callbacks. Directories are watched one level deep. A single save can
// produce more than one reload.
type FixtureWatcher struct {
	paths    []string
	onReload ReloadFunc
	logger   *slog.Logger

	files   map[string]bool // individually watched fixture files
	dirs    map[string]bool // directories whose fixtures are all watched
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFixtureWatcher creates a watcher for the given fixture paths.
func NewFixtureWatcher(paths []string, onReload ReloadFunc, logger *slog.Logger) *FixtureWatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FixtureWatcher{
		paths:    paths,
		onReload: onReload,
		logger:   logger,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
}

// Start begins watching. Call Stop to clean up.
func (fw *FixtureWatcher) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, p := range fw.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			_ = w.Close()
			return fmt.Errorf("notify: %w", err)
		}
		dir := abs
		if info.IsDir() {
			fw.dirs[abs] = true
		} else {
			fw.files[abs] = true
			dir = filepath.Dir(abs)
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("notify: watch %s: %w", dir, err)
		}
	}
	fw.watcher = w

	go fw.loop()
	fw.logger.Info("watching fixtures for changes", "paths", fw.paths)
	return nil
}

// Stop shuts down the watcher.
func (fw *FixtureWatcher) Stop() {
	if fw.watcher == nil {
		return
	}
	_ = fw.watcher.Close()
	<-fw.done
}

func (fw *FixtureWatcher) loop() {
	defer close(fw.done)
	for {
		select {
		case evt, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 && fw.wants(evt.Name) {
				fw.reload(evt.Name)
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("fixture watcher error", "error", err)
		}
	}
}

// wants reports whether name is a watched fixture.
func (fw *FixtureWatcher) wants(name string) bool {
	if fw.files[name] {
		return true
	}
	if !fw.dirs[filepath.Dir(name)] || strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (fw *FixtureWatcher) reload(path string) {
	elements, err := loader.LoadFile(path)
	if err != nil {
		fw.logger.Warn("failed to reload fixture", "path", path, "error", err)
		return
	}
	fw.logger.Debug("fixture changed", "path", path, "elements", len(elements))
	if fw.onReload != nil {
		fw.onReload(path, elements)
	}
}
