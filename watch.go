package previewhl

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cptaffe/previewhl/logger"
)

const debounceDuration = 200 * time.Millisecond

// maxReadRetries is the number of times a changed file is re-read before
// the change is skipped.  Editors that save by truncate-then-write or by
// rename briefly leave the file missing or empty.
const maxReadRetries = 5

// Watch calls fn with the document at path, then again each time the file
// changes, until ctx is done.  A burst of events produces one call, made
// once the file has been quiet for debounceDuration.  The containing directory is watched so files replaced
// by rename keep being followed.
//
// fn runs on Watch's goroutine; Watch returns ctx.Err() once ctx is done.
func Watch(ctx context.Context, path string, maxBytes int64, fn func(Document)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	ctx = logger.With(ctx, zap.String("watch", abs))
	log := logger.L(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	bo := &backoff{min: 50 * time.Millisecond, max: time.Second}
	reload := func() error {
		var doc Document
		err := retry(ctx, maxReadRetries, bo, func() error {
			var err error
			doc, err = ReadDocument(abs, maxBytes)
			return err
		})
		if err != nil {
			return err
		}
		fn(doc)
		return nil
	}
	if err := reload(); err != nil {
		return err
	}

	timer := time.NewTimer(debounceDuration)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}
			log.Debug("file event", zap.Stringer("op", ev.Op))
			// Every event in a burst pushes the reload back.
			timer.Reset(debounceDuration)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if err := reload(); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Removed or unreadable; wait for the next event.
				log.Debug("reload failed", zap.Error(err))
			}
		}
	}
}
