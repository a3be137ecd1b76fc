package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it is written and passes the new
// config to onChange. Files that fail to load are logged and skipped. It
// returns once the watcher is set up; watching stops with ctx.
func Watch(ctx context.Context, path string, onChange func(*AppConfig)) error {
	logger := slog.Default().With("module", "config")

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory so editors that replace the file are seen too.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				c, err := Load(abs)
				if err != nil {
					logger.Error("error reloading config", slog.Any("error", err))
					continue
				}
				logger.Info("config reloaded", slog.String("path", abs))
				onChange(c)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Debug("error watching config", slog.Any("error", err))
			}
		}
	}()

	return nil
}
