package federa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the quiet period after the last filesystem event
// before the configuration is re-applied, so an editor's write-then-
// rename sequence coalesces into one reload.
const watchDebounce = 500 * time.Millisecond

// Watch monitors a host configuration file and re-applies it on change.
// Healthy remotes are left untouched; failed remotes named in the file
// are superseded, which makes late-deployed remotes come up without a
// host restart.
//
// Watch blocks until ctx is canceled. Reload errors are logged and
// watching continues.
func (l *Loader) Watch(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watch host config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch host config: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file so atomic replace
	// (write temp, rename over) keeps firing events.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch host config: %w", err)
	}

	target := filepath.Clean(path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watch host config: event channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watch host config: error channel closed")
			}
			l.log.Warn("host config watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil

			cfg, err := LoadHostConfig(path)
			if err != nil {
				l.log.Warn("host config reload failed", "path", path, "error", err)
				continue
			}
			if err := l.Apply(cfg); err != nil {
				l.log.Warn("host config apply failed", "path", path, "error", err)
				continue
			}
			l.log.Info("host config reloaded", "path", path)
		}
	}
}
