// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for mcpchat.
//
// Two layers live here. The application Config (config.toml, .env and
// MCPCHAT_* variables) says where documents are stored and how the runtime
// behaves. The Settings store is the user-editable JSON document holding
// the model choice, temperature, timeout and system prompt.
//
// # Key Types
//
//   - Config: application configuration with paths, Ollama, agent, UI and logging
//   - Settings: JSON settings document with Get, Set and GetAll
//   - Snapshot: typed settings value taken once per operation
//   - Watcher: debounced notifications when a document changes on disk
//   - ValidationError: rejected value with a user-facing message
//
// # Configuration Precedence
//
//   - Environment variables (MCPCHAT_*, OLLAMA_HOST)
//   - .env in the working directory
//   - ~/.mcpchat/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	settings, err := config.NewSettings(cfg.SettingsPath())
//	snap, err := settings.Snapshot()
//	timeout := snap.TimeoutDuration()
package config
