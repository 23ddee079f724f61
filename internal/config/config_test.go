// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MCPCHAT_DATA_DIR", "")
	t.Setenv("MCPCHAT_OLLAMA_URL", "")
	t.Setenv("OLLAMA_HOST", "")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Ollama.URL != "http://127.0.0.1:11434" {
		t.Errorf("Ollama.URL = %q", cfg.Ollama.URL)
	}
	if cfg.Agent.RecursionLimit != 100 {
		t.Errorf("RecursionLimit = %d, want 100", cfg.Agent.RecursionLimit)
	}
	if cfg.PollInterval() != 100*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval())
	}
}

func TestLoadFromPath_TOMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.ToSlash(dir) + `"
history_file = "history.json"

[ollama]
url = "http://gpu-box:11434"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MCPCHAT_DATA_DIR", "")
	t.Setenv("MCPCHAT_OLLAMA_URL", "")
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("MCPCHAT_LOG_LEVEL", "warn")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Ollama.URL != "http://gpu-box:11434" {
		t.Errorf("Ollama.URL = %q", cfg.Ollama.URL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want env override warn", cfg.Logging.Level)
	}
	if got, want := cfg.HistoryPath(), filepath.Join(dir, "history.json"); got != want {
		t.Errorf("HistoryPath = %q, want %q", got, want)
	}
	if got, want := cfg.SettingsPath(), filepath.Join(dir, "app_settings.json"); got != want {
		t.Errorf("SettingsPath = %q, want %q", got, want)
	}
}

func TestApplyEnvOverrides_OllamaHost(t *testing.T) {
	t.Setenv("MCPCHAT_OLLAMA_URL", "")
	t.Setenv("OLLAMA_HOST", "10.0.0.5:11434")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Ollama.URL != "http://10.0.0.5:11434" {
		t.Errorf("Ollama.URL = %q", cfg.Ollama.URL)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Ollama.URL = "not a url"
	cfg.UI.PollInterval = "soon"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	var errs ValidateErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Validate() = %v, want ValidateErrors", err)
	}
	if len(errs) != 3 {
		t.Errorf("len(errs) = %d, want 3: %v", len(errs), errs)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	t.Setenv("MCPCHAT_DATA_DIR", "")
	t.Setenv("MCPCHAT_OLLAMA_URL", "")
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("MCPCHAT_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Agent.RecursionLimit = 12
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	back, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if back.Agent.RecursionLimit != 12 {
		t.Errorf("RecursionLimit = %d, want 12", back.Agent.RecursionLimit)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	os.WriteFile(path, []byte("MCPCHAT_TEST_DOTENV=loaded\n"), 0600)
	t.Setenv("MCPCHAT_TEST_DOTENV", "")
	os.Unsetenv("MCPCHAT_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("MCPCHAT_TEST_DOTENV"); got != "loaded" {
		t.Errorf("MCPCHAT_TEST_DOTENV = %q, want loaded", got)
	}
}
