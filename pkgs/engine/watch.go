package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchHandler receives the outcome of every re-parse
type WatchHandler func(result *ParseResult, err error)

// Watch parses inputPath once, then again every time it is written or
// replaced, until ctx is done. The parent directory is watched so editors
// that save by rename are picked up.
func (e *Engine) Watch(ctx context.Context, inputPath, outputPath string, pretty bool, handle WatchHandler) error {
	if inputPath == "" || inputPath == "-" {
		return fmt.Errorf("watch needs a file path, got %q", inputPath)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", inputPath, err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	log := e.log.WithField("input", inputPath)
	handle(e.ParseFile(ctx, inputPath, outputPath, pretty))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debugf("change detected: %s", event.Op)
			handle(e.ParseFile(ctx, inputPath, outputPath, pretty))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.ErrorWithErr("watch error", err)
		}
	}
}
