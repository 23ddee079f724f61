// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/mcpchat/internal/util"
)

// =============================================================================
// SETTINGS KEYS
// =============================================================================

// Setting names present in every settings document.
const (
	KeyAIService   = "ai_service"
	KeyLLMModel    = "llm_model"
	KeyTemperature = "temperature"
	KeyTimeout     = "timeout"
	KeyPrompt      = "prompt"
)

// SettingKeys lists the user-editable settings in display order.
var SettingKeys = []string{KeyAIService, KeyLLMModel, KeyTemperature, KeyTimeout, KeyPrompt}

// SupportedAIServices lists the model runtimes the agent can drive.
var SupportedAIServices = []string{"Ollama"}

// Default setting values.
const (
	DefaultAIService   = "Ollama"
	DefaultLLMModel    = "qwen3:4b"
	DefaultTemperature = 0.1
	DefaultTimeout     = 600
	DefaultPrompt      = ""
)

// DefaultSettings returns a fresh copy of the built-in settings document.
func DefaultSettings() map[string]any {
	return map[string]any{
		KeyAIService:   DefaultAIService,
		KeyLLMModel:    DefaultLLMModel,
		KeyTemperature: DefaultTemperature,
		KeyTimeout:     DefaultTimeout,
		KeyPrompt:      DefaultPrompt,
	}
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// Settings is the key/value settings document. Every Set rewrites the whole
// document; GetAll re-reads the file so edits made outside the process are
// observed. Safe for concurrent use.
type Settings struct {
	path string

	mu     sync.Mutex
	values map[string]any
}

// NewSettings loads the settings document at path, merging its keys over
// the defaults. A missing file yields exactly the defaults.
func NewSettings(path string) (*Settings, error) {
	s := &Settings{
		path:   path,
		values: DefaultSettings(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the document path.
func (s *Settings) Path() string {
	return s.path
}

// load merges the on-disk document over the current values. Keys unknown to
// the defaults are kept. Caller holds mu, or s is not yet shared.
func (s *Settings) load() error {
	var disk map[string]any
	found, err := util.ReadJSONDocument(s.path, &disk)
	if err != nil {
		if found {
			return ValidationError{Field: s.path, Message: err.Error()}
		}
		return err
	}
	maps.Copy(s.values, disk)
	return nil
}

// Get returns the value for key, or def when the key is absent.
func (s *Settings) Get(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Set stores value under key and persists the whole document before
// returning. A write failure is returned as-is and the previous value is
// kept.
func (s *Settings) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := util.WriteJSONDocument(s.path, s.values, "    "); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// GetAll reloads the document from disk and returns a copy of every value.
func (s *Settings) GetAll() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	return maps.Clone(s.values), nil
}

// Snapshot reloads the document once and returns its typed view.
func (s *Settings) Snapshot() (Snapshot, error) {
	all, err := s.GetAll()
	if err != nil {
		return Snapshot{}, err
	}
	return SnapshotFrom(all), nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable, typed view of the settings taken at one point
// in time. Components fetch one per operation and pass it down instead of
// re-reading the store mid-operation.
type Snapshot struct {
	AIService   string
	LLMModel    string
	Temperature float64
	Timeout     int
	Prompt      string
}

// SnapshotFrom builds a Snapshot from a raw settings map. Missing or
// mistyped values fall back to their defaults.
func SnapshotFrom(values map[string]any) Snapshot {
	snap := Snapshot{
		AIService:   DefaultAIService,
		LLMModel:    DefaultLLMModel,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
		Prompt:      DefaultPrompt,
	}
	if v, ok := values[KeyAIService].(string); ok && v != "" {
		snap.AIService = v
	}
	if v, ok := values[KeyLLMModel].(string); ok && v != "" {
		snap.LLMModel = v
	}
	if v, ok := toFloat(values[KeyTemperature]); ok {
		snap.Temperature = v
	}
	if v, ok := toFloat(values[KeyTimeout]); ok && v > 0 {
		snap.Timeout = int(v)
	}
	if v, ok := values[KeyPrompt].(string); ok {
		snap.Prompt = v
	}
	return snap
}

// TimeoutDuration returns Timeout as a time.Duration.
func (s Snapshot) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// Value returns the snapshot value for one of SettingKeys.
func (s Snapshot) Value(key string) any {
	switch key {
	case KeyAIService:
		return s.AIService
	case KeyLLMModel:
		return s.LLMModel
	case KeyTemperature:
		return s.Temperature
	case KeyTimeout:
		return s.Timeout
	case KeyPrompt:
		return s.Prompt
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// =============================================================================
// USER INPUT
// =============================================================================

// ParseSettingValue converts text typed by the user into the typed value
// stored for key. Rejected input is a ValidationError whose Message is
// shown verbatim.
func ParseSettingValue(key, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	switch key {
	case KeyAIService:
		if !slices.Contains(SupportedAIServices, trimmed) {
			return nil, ValidationError{Field: key, Message: "Select a valid option."}
		}
		return trimmed, nil
	case KeyLLMModel:
		if trimmed == "" {
			return nil, ValidationError{Field: key, Message: "Enter a model name."}
		}
		return trimmed, nil
	case KeyTemperature:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, ValidationError{Field: key, Message: "Enter a float value."}
		}
		if f < 0 || f > 2 {
			return nil, ValidationError{Field: key, Message: "Enter a value between 0 and 2."}
		}
		return f, nil
	case KeyTimeout:
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, ValidationError{Field: key, Message: "Enter an integer value."}
		}
		if n <= 0 {
			return nil, ValidationError{Field: key, Message: "Enter a positive number of seconds."}
		}
		return n, nil
	case KeyPrompt:
		return raw, nil
	}
	return raw, nil
}

// FormatValue renders a setting value the way the settings list and the
// transcript notes show it.
func FormatValue(v any) string {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) && n >= 1 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
