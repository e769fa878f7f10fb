package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 200 * time.Millisecond

// Watch reloads path whenever it changes and hands the new config to
// onChange. It watches the parent directory so editors that replace the
// file are seen. A config that fails to load is logged and skipped. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *log.Logger, onChange func(Config)) error {
	if logger == nil {
		logger = log.Default()
	}
	path, err := filepath.Abs(expandHome(path))
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			// Editors often write a file in several steps; wait for quiet.
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDelay)
			reload = timer.C
		case <-reload:
			reload = nil
			cfg, err := Load(path)
			if err != nil {
				logger.Printf("[config] reload %s failed: %v", path, err)
				continue
			}
			logger.Printf("[config] reloaded %s", path)
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Printf("[config] watch error: %v", err)
		}
	}
}
