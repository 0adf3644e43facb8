// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch calls onChange whenever the file at path is written, created or
// renamed into place. The parent directory is watched so that atomic
// saves (write temp, rename) are seen. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				onChange()
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(werr).Str("path", target).Msg("CONFIG_WATCH_ERROR")
			}
		}
	}()
	return nil
}

// Watch reloads the settings whenever their file changes on disk.
func (s *Settings) Watch(ctx context.Context) error {
	path := s.Path()
	if path == "" {
		return nil
	}
	return Watch(ctx, path, func() {
		if err := s.Reload(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("CONFIG_RELOAD_FAILED")
			return
		}
		log.Info().Str("path", path).Msg("CONFIG_RELOADED")
	})
}
