package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is how long the watcher waits after the last relevant event
// before rescanning, coalescing editor save bursts.
const watchDebounce = 300 * time.Millisecond

// Watch rescans the corpus whenever script files change, blocking until ctx
// is cancelled. notify, when non-nil, is called after every successful
// rescan. Rescan failures are logged and watching continues.
func (e *Engine) Watch(ctx context.Context, opts ScanOptions, notify func(*ScanResult)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDir(watcher, e.corpusDir); err != nil {
		return fmt.Errorf("failed to watch corpus: %w", err)
	}

	e.logger.Info("watching corpus", "corpus_dir", e.corpusDir)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories must be added to the watcher before their
			// contents produce events.
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = watchDir(watcher, event.Name)
					debounce = time.After(watchDebounce)
					continue
				}
			}
			if !isCandidate(filepath.Base(event.Name)) {
				continue
			}
			e.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			debounce = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watcher error", "error", err)

		case <-debounce:
			debounce = nil
			result, err := e.Scan(ctx, opts)
			if err != nil {
				e.logger.Error("rescan failed", "error", err)
				continue
			}
			if notify != nil {
				notify(result)
			}
		}
	}
}

// watchDir recursively adds a directory tree to the watcher, skipping hidden
// directories.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
