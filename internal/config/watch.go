// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// DOCUMENT WATCHER
// =============================================================================

// ChangeKind identifies which document changed on disk.
type ChangeKind int

const (
	KindSettings ChangeKind = iota
	KindRegistry
)

func (k ChangeKind) String() string {
	switch k {
	case KindSettings:
		return "settings"
	case KindRegistry:
		return "registry"
	}
	return "unknown"
}

// FileChange is a debounced notification that a watched document changed.
type FileChange struct {
	Path string
	Kind ChangeKind
}

// Watcher reports edits to the settings and registry documents, including
// ones made by other processes or a text editor. Atomic writes show up as a
// create of the target name, so parent directories are watched rather than
// the files themselves.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]ChangeKind
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time

	changes chan FileChange
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for the given document paths.
func NewWatcher(files map[string]ChangeKind, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs := make(map[string]ChangeKind, len(files))
	for path, kind := range files {
		p, err := filepath.Abs(path)
		if err != nil {
			fw.Close()
			return nil, err
		}
		abs[filepath.Clean(p)] = kind
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fw,
		files:    abs,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]time.Time),
		changes:  make(chan FileChange, 8),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching. Directories that do not exist yet are an error.
func (w *Watcher) Start() error {
	dirs := make(map[string]bool)
	for path := range w.files {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

// Changes returns the notification channel. It is closed by Close.
func (w *Watcher) Changes() <-chan FileChange {
	return w.changes
}

// Close stops watching and closes the Changes channel.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	close(w.changes)
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(event.Name)
			if _, watched := w.files[path]; !watched {
				continue
			}
			w.mu.Lock()
			w.pending[path] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) processPending() {
	defer w.wg.Done()
	tick := w.debounce / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now()
		var ready []string
		w.mu.Lock()
		for path, changed := range w.pending {
			if now.Sub(changed) >= w.debounce {
				ready = append(ready, path)
				delete(w.pending, path)
			}
		}
		w.mu.Unlock()

		for _, path := range ready {
			select {
			case w.changes <- FileChange{Path: path, Kind: w.files[path]}:
			case <-w.ctx.Done():
				return
			}
		}
	}
}
