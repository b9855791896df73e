package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const placementDebounce = 100 * time.Millisecond

// watchPlacement signals changed, at most once per burst of writes, when
// the placement storage file is written or replaced. Watching stops when
// ctx is done.
func watchPlacement(ctx context.Context, path string, changed chan<- struct{}, logger zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("placement watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("placement watcher: watch %s: %w", dir, err)
	}

	var (
		mu       sync.Mutex
		debounce *time.Timer
	)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	go func() {
		defer watcher.Close()
		name := filepath.Base(path)
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				mu.Lock()
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(placementDebounce, notify)
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("placement watcher error")
			}
		}
	}()

	logger.Info().Str("path", path).Msg("watching placement storage")
	return nil
}
