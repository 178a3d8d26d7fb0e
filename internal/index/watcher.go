package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/taxonomy-explorer/internal/storage"
)

// DebounceInterval is how long the watcher waits for a burst of events on the
// source file to settle before reindexing.
const DebounceInterval = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of KindCreated, KindUpdated, KindDeleted.
type EventCallback func(kind string, path string)

// Watch observes the directory holding the source file and reindexes it after
// changes settle, until ctx is cancelled. Editors and storage.FS replace the file
// by renaming a temp file over it, so the directory is watched rather than the file.
func Watch(ctx context.Context, db *DB, store storage.Provider, file string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Join(store.Root(), file)
	dir := filepath.Dir(target)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir), slog.String("file", file))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(DebounceInterval)
			fire = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(DebounceInterval)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			kind, err := Refresh(db, store, file)
			if err != nil {
				logger.Warn("watcher: refresh failed", slog.String("path", file), slog.String("error", err.Error()))
				continue
			}
			if kind == "" {
				continue
			}
			logger.Debug("watcher: indexed", slog.String("path", file), slog.String("op", kind))
			if cb != nil {
				cb(kind, file)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
