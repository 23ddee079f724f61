// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package toolserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/jeranaias/mcpchat/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDuplicateName is returned by AddServer when the name is taken.
	ErrDuplicateName = errors.New("server already exists")

	// ErrServerNotFound is returned when a named server is not registered.
	ErrServerNotFound = errors.New("server does not exist")
)

// ValidationError is a rejected registry document. Message is shown to the
// user verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// =============================================================================
// DOCUMENT VALIDATION
// =============================================================================

// RootKey is the top-level key of the registry document.
const RootKey = "mcpServers"

// ValidMessage is the message Validate returns for an accepted document.
const ValidMessage = "Valid MCP config."

// Validate checks the shape of a registry document: a mcpServers mapping
// whose entries are mappings with a command and an args list. Entries are
// checked in name order so the first reported problem is deterministic.
func Validate(doc map[string]any) (bool, string) {
	servers, ok := doc[RootKey].(map[string]any)
	if !ok {
		return false, `"mcpServers" key is not in the top level of the config or is not a dictionary.`
	}
	for _, name := range sortedKeys(servers) {
		entry, ok := servers[name].(map[string]any)
		if !ok {
			return false, fmt.Sprintf(`"%s" server config is not a dictionary.`, name)
		}
		_, hasCommand := entry["command"]
		_, hasArgs := entry["args"]
		if !hasCommand || !hasArgs {
			return false, fmt.Sprintf(`"%s" server has no "command" or "args".`, name)
		}
		if !isList(entry["args"]) {
			return false, fmt.Sprintf(`"%s" server "args" must be a list.`, name)
		}
	}
	return true, ValidMessage
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	}
	return false
}

// Template returns the entry offered when the user adds a new server.
func Template() map[string]any {
	return map[string]any{
		"command":   "mcp_server_command",
		"args":      []any{"mcp_server_arg1", "mcp_server_arg2"},
		"transport": "set_stdio_for_local_server",
	}
}

// TemplateJSON is Template rendered for editing.
func TemplateJSON() string {
	data, _ := json.MarshalIndent(Template(), "", "    ")
	return string(data)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the tool-server registry document on disk. It holds no state
// between calls: every operation reads the file, and every write is
// validated first. A document that fails validation is never written.
type Registry struct {
	path string
}

// NewRegistry returns a registry backed by path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the document path.
func (r *Registry) Path() string {
	return r.path
}

// Load reads the document. A missing file is an empty registry; a file that
// does not parse or validate is an error.
func (r *Registry) Load() (map[string]any, error) {
	var doc map[string]any
	found, err := util.ReadJSONDocument(r.path, &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]any{RootKey: map[string]any{}}, nil
	}
	if ok, msg := Validate(doc); !ok {
		return nil, &ValidationError{Message: msg}
	}
	return doc, nil
}

// SaveDocument validates doc and writes it. Nothing is written when
// validation fails.
func (r *Registry) SaveDocument(doc map[string]any) error {
	if ok, msg := Validate(doc); !ok {
		return &ValidationError{Message: msg}
	}
	return util.WriteJSONDocument(r.path, doc, "    ")
}

// Names returns the registered server names, sorted.
func (r *Registry) Names() ([]string, error) {
	doc, err := r.Load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc[RootKey].(map[string]any)), nil
}

// Entry returns the raw entry for name.
func (r *Registry) Entry(name string) (map[string]any, error) {
	doc, err := r.Load()
	if err != nil {
		return nil, err
	}
	entry, ok := doc[RootKey].(map[string]any)[name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrServerNotFound)
	}
	return entry, nil
}

// EntryJSON returns the entry for name formatted for editing, or a blank
// command/args skeleton when it is not registered.
func (r *Registry) EntryJSON(name string) (string, error) {
	entry, err := r.Entry(name)
	if errors.Is(err, ErrServerNotFound) {
		return "{\n    \"command\": \"\",\n    \"args\": []\n}", nil
	}
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(entry, "", "    ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AddServer registers a new server. It fails with ErrDuplicateName, leaving
// the document untouched, when name is already registered.
func (r *Registry) AddServer(name, command string, args []string, extra map[string]any) error {
	doc, err := r.Load()
	if err != nil {
		return err
	}
	servers := doc[RootKey].(map[string]any)
	if _, exists := servers[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrDuplicateName)
	}

	entry := make(map[string]any, len(extra)+2)
	maps.Copy(entry, extra)
	list := make([]any, len(args))
	for i, a := range args {
		list[i] = a
	}
	entry["command"] = command
	entry["args"] = list
	servers[name] = entry

	return r.SaveDocument(doc)
}

// PutServer creates or replaces the entry for name from JSON text typed by
// the user.
func (r *Registry) PutServer(name, raw string) error {
	if name == "" {
		return &ValidationError{Message: "Enter a server name."}
	}
	var entry any
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return &ValidationError{Message: fmt.Sprintf("JSON parsing error: %v", err)}
	}

	if m, ok := entry.(map[string]any); ok {
		if _, err := ParseServerConfig(name, m); err != nil {
			return err
		}
	}

	doc, err := r.Load()
	if err != nil {
		return err
	}
	doc[RootKey].(map[string]any)[name] = entry
	return r.SaveDocument(doc)
}

// DeleteServer removes name from the registry.
func (r *Registry) DeleteServer(name string) error {
	doc, err := r.Load()
	if err != nil {
		return err
	}
	servers := doc[RootKey].(map[string]any)
	if _, ok := servers[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrServerNotFound)
	}
	delete(servers, name)
	return r.SaveDocument(doc)
}

// Servers decodes every entry into a ServerConfig. Undecodable entries are
// skipped and reported as EntryErrors next to the good ones.
func (r *Registry) Servers() ([]ServerConfig, error) {
	doc, err := r.Load()
	if err != nil {
		return nil, err
	}
	return ParseServers(doc)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
