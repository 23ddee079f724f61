// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/mcpchat/internal/util"
)

// =============================================================================
// APPLICATION CONFIG
// =============================================================================

// Config is the application-level configuration read from config.toml.
// It locates the documents and tunes the runtime; the chat settings the
// user edits from the UI live in the Settings Store instead.
type Config struct {
	Paths   PathsConfig   `toml:"paths" json:"paths"`
	Ollama  OllamaConfig  `toml:"ollama" json:"ollama"`
	Agent   AgentConfig   `toml:"agent" json:"agent"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// PathsConfig locates the persisted documents. Relative file names are
// resolved against DataDir.
type PathsConfig struct {
	DataDir      string `toml:"data_dir" json:"data_dir"`
	SettingsFile string `toml:"settings_file" json:"settings_file"`
	RegistryFile string `toml:"registry_file" json:"registry_file"`
	HistoryFile  string `toml:"history_file" json:"history_file"`
	IndexFile    string `toml:"index_file" json:"index_file"`
	ReplHistory  string `toml:"repl_history" json:"repl_history"`
}

// OllamaConfig configures the local model runtime endpoint.
type OllamaConfig struct {
	URL            string `toml:"url" json:"url"`
	ConnectTimeout string `toml:"connect_timeout" json:"connect_timeout"`
}

// AgentConfig tunes the reasoning loop.
type AgentConfig struct {
	// RecursionLimit caps model round trips in one tool-augmented turn.
	RecursionLimit int `toml:"recursion_limit" json:"recursion_limit"`

	// InitDelay is slept before connecting tool servers on init.
	InitDelay string `toml:"init_delay" json:"init_delay"`
}

// UIConfig tunes the presentation layer.
type UIConfig struct {
	PollInterval   string `toml:"poll_interval" json:"poll_interval"`
	RenderMarkdown bool   `toml:"render_markdown" json:"render_markdown"`
}

// LoggingConfig configures the slog sink.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	File   string `toml:"file" json:"file"`
	Format string `toml:"format" json:"format"`
}

// Default returns the built-in application configuration.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		Paths: PathsConfig{
			DataDir:      dir,
			SettingsFile: "app_settings.json",
			RegistryFile: "mcp_config.json",
			HistoryFile:  "chat_history.json",
			IndexFile:    "history.db",
			ReplHistory:  "repl_history",
		},
		Ollama: OllamaConfig{
			URL:            "http://127.0.0.1:11434",
			ConnectTimeout: "5s",
		},
		Agent: AgentConfig{
			RecursionLimit: 100,
			InitDelay:      "0s",
		},
		UI: UIConfig{
			PollInterval:   "100ms",
			RenderMarkdown: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			File:   "mcpchat.log",
			Format: "text",
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the mcpchat configuration directory (~/.mcpchat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mcpchat"), nil
}

// ConfigPathTOML returns the path to config.toml.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.Paths.DataDir, 0755)
}

func (c *Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Paths.DataDir, name)
}

// SettingsPath returns the absolute settings document path.
func (c *Config) SettingsPath() string { return c.resolve(c.Paths.SettingsFile) }

// RegistryPath returns the absolute tool-server registry path.
func (c *Config) RegistryPath() string { return c.resolve(c.Paths.RegistryFile) }

// HistoryPath returns the absolute chat history path.
func (c *Config) HistoryPath() string { return c.resolve(c.Paths.HistoryFile) }

// IndexPath returns the absolute search index database path.
func (c *Config) IndexPath() string { return c.resolve(c.Paths.IndexFile) }

// ReplHistoryPath returns the REPL line history path.
func (c *Config) ReplHistoryPath() string { return c.resolve(c.Paths.ReplHistory) }

// LogPath returns the absolute log file path.
func (c *Config) LogPath() string { return c.resolve(c.Logging.File) }

// PollInterval returns the UI drain interval.
func (c *Config) PollInterval() time.Duration {
	return parseDurationOr(c.UI.PollInterval, 100*time.Millisecond)
}

// ConnectTimeout returns the Ollama connect timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return parseDurationOr(c.Ollama.ConnectTimeout, 5*time.Second)
}

// InitDelay returns the pause before tool servers are connected.
func (c *Config) InitDelay() time.Duration {
	return parseDurationOr(c.Agent.InitDelay, 0)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads ~/.mcpchat/config.toml when present, then applies .env and
// environment overrides and validates the result.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit config.toml path. A missing file
// yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// SaveTOML writes the configuration to path.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# mcpchat configuration file\n")
	b.WriteString("# Chat settings (model, temperature, timeout, prompt) live in the settings document.\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies MCPCHAT_* variables on top of file values.
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("MCPCHAT_DATA_DIR"); dir != "" {
		c.Paths.DataDir = dir
	}
	if u := os.Getenv("MCPCHAT_OLLAMA_URL"); u != "" {
		c.Ollama.URL = u
	} else if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Ollama.URL = normalizeOllamaHost(host)
	}
	if level := os.Getenv("MCPCHAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("MCPCHAT_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
}

// normalizeOllamaHost accepts OLLAMA_HOST in its "host:port" form.
func normalizeOllamaHost(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

// SetDefaults fills empty fields left by a partial config file.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = def.Paths.DataDir
	}
	if c.Paths.SettingsFile == "" {
		c.Paths.SettingsFile = def.Paths.SettingsFile
	}
	if c.Paths.RegistryFile == "" {
		c.Paths.RegistryFile = def.Paths.RegistryFile
	}
	if c.Paths.HistoryFile == "" {
		c.Paths.HistoryFile = def.Paths.HistoryFile
	}
	if c.Paths.IndexFile == "" {
		c.Paths.IndexFile = def.Paths.IndexFile
	}
	if c.Paths.ReplHistory == "" {
		c.Paths.ReplHistory = def.Paths.ReplHistory
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = def.Ollama.URL
	}
	if c.Ollama.ConnectTimeout == "" {
		c.Ollama.ConnectTimeout = def.Ollama.ConnectTimeout
	}
	if c.Agent.RecursionLimit == 0 {
		c.Agent.RecursionLimit = def.Agent.RecursionLimit
	}
	if c.Agent.InitDelay == "" {
		c.Agent.InitDelay = def.Agent.InitDelay
	}
	if c.UI.PollInterval == "" {
		c.UI.PollInterval = def.UI.PollInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.File == "" {
		c.Logging.File = def.Logging.File
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports a rejected configuration or settings value.
// Message is meant to be shown to the user verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Ollama.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "ollama.url",
			Message: fmt.Sprintf("invalid URL %q", c.Ollama.URL),
		})
	}

	durations := map[string]string{
		"ollama.connect_timeout": c.Ollama.ConnectTimeout,
		"agent.init_delay":       c.Agent.InitDelay,
		"ui.poll_interval":       c.UI.PollInterval,
	}
	for _, field := range []string{"ollama.connect_timeout", "agent.init_delay", "ui.poll_interval"} {
		d, err := time.ParseDuration(durations[field])
		if err != nil || d < 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid duration %q", durations[field]),
			})
		}
	}

	if c.Agent.RecursionLimit < 1 {
		errs = append(errs, ValidationError{
			Field:   "agent.recursion_limit",
			Message: "must be at least 1",
		})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format %q, must be text or json", c.Logging.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
