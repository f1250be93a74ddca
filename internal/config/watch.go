package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs the burst of events editors emit on save
const reloadDebounce = 250 * time.Millisecond

// Watch reloads path whenever it changes and hands valid configs to fn.
// Invalid files are logged and ignored. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(*Config)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file by rename.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != absPath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			cfg, err := LoadFile(absPath)
			if err != nil {
				logger.Warn("Config reload rejected",
					slog.String("path", absPath),
					slog.String("error", err.Error()),
				)
				continue
			}
			logger.Info("Config reloaded", slog.String("path", absPath))
			fn(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error", slog.String("error", err.Error()))
		}
	}
}
