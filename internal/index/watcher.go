package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/othala/internal/storage"
)

// Watch starts an fsnotify watcher on the content node directory and keeps
// the index current with out-of-band file changes until ctx is cancelled.
//
// New or rewritten node files are indexed incrementally. Removes and renames
// schedule a debounced full rebuild, since incremental updates never retract
// a document.
func Watch(ctx context.Context, idx *Index, store *storage.Store, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	contentDir := store.ContentDir()
	if err := w.Add(contentDir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", contentDir))

	var rebuildTimer *time.Timer
	var rebuildCh <-chan time.Time

	scheduleRebuild := func() {
		if rebuildTimer == nil {
			rebuildTimer = time.NewTimer(500 * time.Millisecond)
			rebuildCh = rebuildTimer.C
		} else {
			rebuildTimer.Reset(500 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rebuildCh:
			if err := idx.Rebuild(store); err != nil {
				logger.Warn("watcher: rebuild failed", slog.String("error", err.Error()))
			} else {
				logger.Debug("watcher: rebuilt after removal")
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			// Skip in-flight atomic writes and non-node files.
			if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
				continue
			}
			id := strings.TrimSuffix(name, ".json")

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				node, err := store.GetContent(id)
				if err != nil {
					logger.Warn("watcher: read failed", slog.String("id", id), slog.String("error", err.Error()))
					continue
				}
				if err := idx.IndexDocument(node); err != nil {
					logger.Warn("watcher: index failed", slog.String("id", id), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("id", id))

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				scheduleRebuild()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
