package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notearchiver/internal/archive"
)

const reloadDelay = 150 * time.Millisecond

// ReloadCallback is called after the settings file changed on disk, was
// accepted and differs from the settings already in effect.
type ReloadCallback func(s archive.Settings)

// Watch follows edits to the settings file at path until ctx is cancelled
// and reloads m after each burst of changes. The parent directory is watched
// rather than the file so that editors which save by rename are seen.
func Watch(ctx context.Context, m *Manager, path string, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir, name := filepath.Dir(path), filepath.Base(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("settings watcher: started", slog.String("path", path))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDelay)
			timerCh = timer.C
		} else {
			timer.Reset(reloadDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("settings watcher: stopped")
			return nil

		case <-timerCh:
			prev := m.Snapshot()
			s, err := m.Reload()
			if err != nil {
				logger.Warn("settings watcher: rejected settings file",
					slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			// Our own Update already published this snapshot.
			if s == prev {
				continue
			}
			logger.Info("settings watcher: reloaded",
				slog.String("archive_folder", s.ArchiveFolderName),
				slog.String("grouping", string(s.Grouping)))
			if cb != nil {
				cb(s)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("settings watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
