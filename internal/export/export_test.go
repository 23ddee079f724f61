// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/mcpchat/internal/storage"
)

func fixedOptions(dir string) *Options {
	return &Options{
		OutputDir:       dir,
		IncludeMetadata: true,
		Now:             func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) },
	}
}

func sampleSession() storage.ChatSession {
	return storage.ChatSession{
		Title: "What is th...",
		Messages: []string{
			"[Settings] AI: Ollama, Model: qwen3:4b, Temp: 0.1",
			"You: What is the weather in Paris?",
			"Tool Used: get_weather\n---------------------\nSunny\n---------------------",
			"It is sunny in Paris.",
			"Error: timeout after 600 seconds",
		},
	}
}

func TestMarkdownExporter_Export(t *testing.T) {
	exp := NewMarkdownExporter(fixedOptions(t.TempDir()))
	data, err := exp.Export(sampleSession())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"title: What is th...",
		"exported: 2025-03-01T12:30:00Z",
		"# What is th...",
		"> [Settings] AI: Ollama",
		"## You\n\nWhat is the weather in Paris?",
		"```text\nTool Used: get_weather",
		"## Assistant\n\nIt is sunny in Paris.",
		"> **Error:** timeout after 600 seconds",
		"*Exported from mcpchat on March 1, 2025 at 12:30 PM*",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
}

func TestMarkdownExporter_EmptySession(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(storage.ChatSession{Title: "x"})
	if !errors.Is(err, ErrEmptySession) {
		t.Errorf("err = %v, want ErrEmptySession", err)
	}
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	session := sampleSession()
	data, err := NewJSONExporter(nil).Export(session)
	if err != nil {
		t.Fatal(err)
	}
	var got storage.ChatSession
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Title != session.Title || len(got.Messages) != len(session.Messages) {
		t.Errorf("got %+v, want %+v", got, session)
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := fixedOptions(filepath.Join(dir, "out"))

	exp, err := ForFormat("md", opts)
	if err != nil {
		t.Fatal(err)
	}
	path, err := ExportToFile(sampleSession(), exp, opts)
	if err != nil {
		t.Fatalf("ExportToFile() error = %v", err)
	}
	if filepath.Base(path) != "chat_What_is_th_20250301_123000.md" {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestForFormat(t *testing.T) {
	if _, err := ForFormat("json", nil); err != nil {
		t.Errorf("json: %v", err)
	}
	if _, err := ForFormat("pdf", nil); err == nil {
		t.Error("pdf should be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "hello_world"},
		{"a/b:c", "a-b-c"},
		{"", "chat"},
		{"What is th...", "What_is_th"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
