package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/logger"
)

// watchDebounce coalesces editor write bursts into one revalidation
const watchDebounce = 250 * time.Millisecond

// Watch revalidates the skill tree whenever a markdown file under the
// discovery directories changes, invoking onChange with the fresh problem
// list. Blocks until the context is cancelled.
func (d *Discovery) Watch(ctx context.Context, onChange func([]Problem)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	for _, dir := range d.Dirs() {
		_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || !info.IsDir() {
				return nil
			}
			if err := watcher.Add(path); err != nil {
				logger.G(ctx).WithError(err).WithField("dir", path).Debug("failed to watch directory")
			}
			return nil
		})
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	revalidate := func() {
		problems, err := d.ValidateAll(ctx)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("revalidation failed")
			return
		}
		onChange(problems)
	}

	revalidate()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if !strings.HasSuffix(event.Name, ".md") && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("watch error")
		case <-fire:
			revalidate()
		}
	}
}
