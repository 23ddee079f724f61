// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package toolserver

import (
	"fmt"
	"sort"
	"strings"
)

// Transports understood by the Manager.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable_http"
)

// ServerConfig is one registry entry decoded for connecting.
type ServerConfig struct {
	Name      string
	Command   string
	Args      []string
	Transport string
	URL       string
	Env       map[string]string
	Headers   map[string]string
}

// EntryErrors lists registry entries that ParseServers skipped.
type EntryErrors []Failure

func (e EntryErrors) Error() string {
	parts := make([]string, len(e))
	for i, f := range e {
		parts[i] = f.Error()
	}
	return strings.Join(parts, "; ")
}

// ParseServers decodes every entry of a registry document, in name order.
// An entry that cannot be decoded is skipped; the rest are returned along
// with an EntryErrors naming the skipped ones. A document without a
// server map fails as a whole.
func ParseServers(doc map[string]any) ([]ServerConfig, error) {
	servers, ok := doc[RootKey].(map[string]any)
	if !ok {
		return nil, &ValidationError{Message: `"mcpServers" key is not in the top level of the config or is not a dictionary.`}
	}

	names := sortedKeys(servers)
	out := make([]ServerConfig, 0, len(names))
	var skipped EntryErrors
	for _, name := range names {
		entry, ok := servers[name].(map[string]any)
		if !ok {
			skipped = append(skipped, Failure{Server: name, Err: &ValidationError{Message: fmt.Sprintf(`"%s" server config is not a dictionary.`, name)}})
			continue
		}
		cfg, err := ParseServerConfig(name, entry)
		if err != nil {
			skipped = append(skipped, Failure{Server: name, Err: err})
			continue
		}
		out = append(out, cfg)
	}
	if len(skipped) > 0 {
		return out, skipped
	}
	return out, nil
}

// ParseServerConfig decodes a single entry. A missing transport means
// stdio; a url without a command and without a transport means
// streamable_http.
func ParseServerConfig(name string, entry map[string]any) (ServerConfig, error) {
	cfg := ServerConfig{Name: name}

	if v, ok := entry["command"].(string); ok {
		cfg.Command = v
	}
	if v, ok := entry["url"].(string); ok {
		cfg.URL = v
	}
	if v, ok := entry["transport"].(string); ok {
		cfg.Transport = v
	}

	switch args := entry["args"].(type) {
	case []string:
		cfg.Args = append([]string(nil), args...)
	case []any:
		for i, a := range args {
			s, ok := a.(string)
			if !ok {
				return cfg, &ValidationError{Message: fmt.Sprintf(`"%s" server args[%d] must be a string.`, name, i)}
			}
			cfg.Args = append(cfg.Args, s)
		}
	}

	cfg.Env = stringMap(entry["env"])
	cfg.Headers = stringMap(entry["headers"])

	if cfg.Transport == "" {
		if cfg.Command == "" && cfg.URL != "" {
			cfg.Transport = TransportStreamableHTTP
		} else {
			cfg.Transport = TransportStdio
		}
	}
	return cfg, nil
}

// stringMap flattens a JSON object into strings; anything else is nil.
func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// EnvList returns Env as sorted KEY=VALUE pairs.
func (c ServerConfig) EnvList() []string {
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+c.Env[k])
	}
	return out
}
