// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/mcpchat/internal/util"
)

func TestWatcher_ReportsAtomicWrites(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "app_settings.json")
	registryPath := filepath.Join(dir, "mcp_config.json")

	w, err := NewWatcher(map[string]ChangeKind{
		settingsPath: KindSettings,
		registryPath: KindRegistry,
	}, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := util.AtomicWriteFile(registryPath, []byte(`{"mcpServers":{}}`), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-w.Changes():
		if change.Kind != KindRegistry {
			t.Errorf("Kind = %v, want registry", change.Kind)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(map[string]ChangeKind{
		filepath.Join(dir, "app_settings.json"): KindSettings,
	}, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600)

	select {
	case change := <-w.Changes():
		t.Errorf("unexpected change %+v", change)
	case <-time.After(200 * time.Millisecond):
	}
}
