package splitter

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchMapping watches a mapping file and calls apply with each version that
// loads and validates cleanly. Invalid intermediate saves are logged and
// skipped, keeping the last good mapping in effect. Blocks until ctx is
// cancelled.
//
// The parent directory is watched rather than the file itself: editors that
// write via rename replace the inode, which would silently kill a file-level
// watch.
func WatchMapping(ctx context.Context, path string, apply func(Mapping) error, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			m, err := LoadMapping(abs)
			if err != nil {
				logger.Warn("ignoring mapping change", "path", abs, "error", err)
				continue
			}
			if err := apply(m); err != nil {
				logger.Warn("mapping not applied", "path", abs, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("mapping watcher error", "error", err)
		}
	}
}
