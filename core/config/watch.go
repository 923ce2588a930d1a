package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes from editors into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the configuration whenever one of the config files changes.
// It watches the parent directories so files created after startup are seen.
// A reload that fails validation keeps the previous config and is logged.
// Watch blocks until ctx is done or Close is called.
func (m *Manager) Watch(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	files := make(map[string]struct{})
	dirs := make(map[string]struct{})
	for _, p := range m.Paths() {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.Add(dir); err != nil {
			logger.Warn("config watch failed", "dir", dir, "error", err)
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stopWatch:
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, tracked := files[filepath.Clean(ev.Name)]; !tracked {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(DefaultDebounce)
			} else {
				timer.Reset(DefaultDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watch error", "error", err)
		case <-fire:
			fire = nil
			if err := m.Reload(); err != nil {
				logger.Error("config reload failed", "error", err)
				continue
			}
			logger.Info("config reloaded")
		}
	}
}
