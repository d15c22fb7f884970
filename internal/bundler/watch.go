package bundler

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 500 * time.Millisecond

// Watch re-runs the pipeline whenever sourcePath is written. The watch is on
// the containing directory because editors often replace the file via
// rename, which would drop a watch on the file itself. Events are debounced
// so save storms produce one run. Blocks until ctx is cancelled.
//
// Run failures are logged, not returned: a broken intermediate save should
// not stop the watch.
func (b *Builder) Watch(ctx context.Context, sourcePath string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(sourcePath)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(sourcePath)

	b.logger.Info("watching for changes", slog.String("source", sourcePath))

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(debounceDelay)
			debounceCh = debounce.C
		} else {
			debounce.Reset(debounceDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			b.logger.Info("watch stopped")
			return nil

		case <-debounceCh:
			if _, err := b.Run(ctx, sourcePath); err != nil {
				b.logger.Error("re-bundle failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			b.logger.Error("watch error", slog.String("error", watchErr.Error()))
		}
	}
}
