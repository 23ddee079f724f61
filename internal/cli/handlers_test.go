// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/bridge"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/ollama"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeBridge answers init immediately and replays scripted events for
// each chat message.
type fakeBridge struct {
	events chan bridge.Event
	sent   []bridge.Command
	reply  func(message string) []bridge.Event
}

func newFakeBridge(reply func(string) []bridge.Event) *fakeBridge {
	return &fakeBridge{events: make(chan bridge.Event, 64), reply: reply}
}

func (b *fakeBridge) Send(cmd bridge.Command) error {
	b.sent = append(b.sent, cmd)
	switch cmd.Type {
	case bridge.CmdInit:
		b.events <- bridge.Event{Type: bridge.EventInitDone}
	case bridge.CmdChat:
		for _, ev := range b.reply(cmd.Data) {
			b.events <- ev
		}
	}
	return nil
}

func (b *fakeBridge) Events() <-chan bridge.Event {
	return b.events
}

func helloReply(string) []bridge.Event {
	return []bridge.Event{
		{Type: bridge.EventChatMessage, Data: "Hel"},
		{Type: bridge.EventChatMessage, Data: "lo"},
		{Type: bridge.EventChatResult, Data: agent.Result{Output: "Hello"}},
	}
}

func newTestEnv(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()

	settings, err := config.NewSettings(cfg.SettingsPath())
	if err != nil {
		t.Fatalf("NewSettings() error = %v", err)
	}
	history, err := storage.NewChatHistory(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("NewChatHistory() error = %v", err)
	}

	var out bytes.Buffer
	return &Env{
		Config:   cfg,
		Settings: settings,
		Registry: toolserver.NewRegistry(cfg.RegistryPath()),
		History:  history,
		Out:      &out,
		Err:      io.Discard,
	}, &out
}

func decodeResponse(t *testing.T, buf *bytes.Buffer) JSONResponse {
	t.Helper()
	var resp JSONResponse
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
	}
	return resp
}

// scriptedInput feeds fixed lines to the REPL, then EOF.
type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) ReadInput(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

// =============================================================================
// SERVERS
// =============================================================================

func TestServers_AddListShowRemove(t *testing.T) {
	env, out := newTestEnv(t)

	_, args := ParseArgs([]string{"servers", "add", "weather", "python", "--", "server.py", "--port", "8080"})
	if err := HandleServers(env, args); err != nil {
		t.Fatalf("add error = %v", err)
	}
	if !strings.Contains(out.String(), "Server settings saved.") {
		t.Errorf("add output = %q", out.String())
	}

	entry, err := env.Registry.Entry("weather")
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	gotArgs, _ := entry["args"].([]any)
	if len(gotArgs) != 3 || gotArgs[1] != "--port" {
		t.Errorf("stored args = %v", entry["args"])
	}

	out.Reset()
	_, args = ParseArgs([]string{"servers", "list"})
	if err := HandleServers(env, args); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out.String(), "weather") || !strings.Contains(out.String(), "python server.py --port 8080") {
		t.Errorf("list output = %q", out.String())
	}

	out.Reset()
	_, args = ParseArgs([]string{"servers", "show", "weather"})
	if err := HandleServers(env, args); err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out.String(), `"command": "python"`) {
		t.Errorf("show output = %q", out.String())
	}

	out.Reset()
	_, args = ParseArgs([]string{"servers", "remove", "weather"})
	if err := HandleServers(env, args); err != nil {
		t.Fatalf("remove error = %v", err)
	}
	if !strings.Contains(out.String(), "Server deleted.") {
		t.Errorf("remove output = %q", out.String())
	}
}

func TestServers_Errors(t *testing.T) {
	env, _ := newTestEnv(t)
	if err := env.Registry.AddServer("weather", "python", nil, nil); err != nil {
		t.Fatal(err)
	}

	_, args := ParseArgs([]string{"servers", "add", "weather", "node"})
	err := HandleServers(env, args)
	if !errors.Is(err, toolserver.ErrDuplicateName) {
		t.Errorf("duplicate add err = %v, want ErrDuplicateName", err)
	}

	_, args = ParseArgs([]string{"servers", "remove", "missing"})
	if err := HandleServers(env, args); ExitCode(err) != ExitNotFoundError {
		t.Errorf("remove missing exit = %d (%v), want %d", ExitCode(err), err, ExitNotFoundError)
	}

	_, args = ParseArgs([]string{"servers", "add", "only-name"})
	if err := HandleServers(env, args); ExitCode(err) != ExitUsageError {
		t.Errorf("short add exit = %d, want %d", ExitCode(err), ExitUsageError)
	}

	_, args = ParseArgs([]string{"servers", "frobnicate"})
	if err := HandleServers(env, args); ExitCode(err) != ExitUsageError {
		t.Errorf("unknown subcommand exit = %d, want %d", ExitCode(err), ExitUsageError)
	}
}

func TestServers_Validate(t *testing.T) {
	env, out := newTestEnv(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"mcpServers": {"w": {"command": "python", "args": []}}}`), 0644); err != nil {
		t.Fatal(err)
	}
	_, args := ParseArgs([]string{"servers", "validate", good})
	if err := HandleServers(env, args); err != nil {
		t.Fatalf("validate good error = %v", err)
	}
	if !strings.Contains(out.String(), toolserver.ValidMessage) {
		t.Errorf("output = %q", out.String())
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"mcpServers": {"w": {"command": "python", "args": "x"}}}`), 0644); err != nil {
		t.Fatal(err)
	}
	_, args = ParseArgs([]string{"servers", "validate", bad})
	err := HandleServers(env, args)
	if ExitCode(err) != ExitConfigError {
		t.Fatalf("validate bad exit = %d (%v)", ExitCode(err), err)
	}
	if err.Error() != `"w" server "args" must be a list.` {
		t.Errorf("message = %q", err.Error())
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}
	_, args = ParseArgs([]string{"servers", "validate", broken})
	err = HandleServers(env, args)
	if err == nil || !strings.HasPrefix(err.Error(), "JSON parsing error:") {
		t.Errorf("broken err = %v", err)
	}
}

func TestServers_TemplateJSON(t *testing.T) {
	env, out := newTestEnv(t)
	env.JSON = true

	_, args := ParseArgs([]string{"servers", "template", "--json"})
	if err := HandleServers(env, args); err != nil {
		t.Fatal(err)
	}
	resp := decodeResponse(t, out)
	if !resp.Success || resp.Command != "servers template" {
		t.Errorf("response = %+v", resp)
	}
	data, _ := resp.Data.(map[string]any)
	if data["command"] != "mcp_server_command" {
		t.Errorf("template data = %v", resp.Data)
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_SetAndGet(t *testing.T) {
	env, out := newTestEnv(t)

	_, args := ParseArgs([]string{"settings", "set", "temperature", "0.7"})
	if err := HandleSettings(env, args); err != nil {
		t.Fatalf("set error = %v", err)
	}

	out.Reset()
	_, args = ParseArgs([]string{"settings", "get", "temperature"})
	if err := HandleSettings(env, args); err != nil {
		t.Fatalf("get error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "0.7" {
		t.Errorf("get output = %q, want 0.7", out.String())
	}

	_, args = ParseArgs([]string{"settings", "set", "prompt", "be", "brief"})
	if err := HandleSettings(env, args); err != nil {
		t.Fatalf("set prompt error = %v", err)
	}
	if got := env.Settings.Get(config.KeyPrompt, ""); got != "be brief" {
		t.Errorf("prompt = %v, want %q", got, "be brief")
	}
}

func TestSettings_RejectsBadInput(t *testing.T) {
	env, _ := newTestEnv(t)

	_, args := ParseArgs([]string{"settings", "set", "timeout", "soon"})
	err := HandleSettings(env, args)
	if ExitCode(err) != ExitConfigError {
		t.Fatalf("exit = %d (%v), want %d", ExitCode(err), err, ExitConfigError)
	}
	var verr config.ValidationError
	if !errors.As(err, &verr) || verr.Message != "Enter an integer value." {
		t.Errorf("err = %v", err)
	}

	_, args = ParseArgs([]string{"settings", "get", "colour"})
	if err := HandleSettings(env, args); ExitCode(err) != ExitUsageError {
		t.Errorf("unknown key exit = %d, want %d", ExitCode(err), ExitUsageError)
	}
}

func TestSettings_ListJSON(t *testing.T) {
	env, out := newTestEnv(t)
	env.JSON = true

	_, args := ParseArgs([]string{"settings", "list"})
	if err := HandleSettings(env, args); err != nil {
		t.Fatal(err)
	}
	resp := decodeResponse(t, out)
	data, _ := resp.Data.(map[string]any)
	if data[config.KeyLLMModel] != config.DefaultLLMModel {
		t.Errorf("data = %v", resp.Data)
	}
}

// =============================================================================
// SESSIONS
// =============================================================================

func seedHistory(t *testing.T, env *Env) {
	t.Helper()
	if _, err := env.History.CreateSession("What is th...", []string{"[Settings] AI: Ollama", "You: What is the weather?", "Sunny in Paris."}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.History.CreateSession("hi...", []string{"[Settings] AI: Ollama", "You: hi", "Hello"}); err != nil {
		t.Fatal(err)
	}
}

func TestSessions_ListAndShow(t *testing.T) {
	env, out := newTestEnv(t)
	seedHistory(t, env)

	_, args := ParseArgs([]string{"sessions", "list"})
	if err := HandleSessions(context.Background(), env, args); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "What is th...") || !strings.Contains(out.String(), "hi...") {
		t.Errorf("list output = %q", out.String())
	}

	out.Reset()
	_, args = ParseArgs([]string{"sessions", "show", "1"})
	if err := HandleSessions(context.Background(), env, args); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "You: hi") || !strings.Contains(out.String(), "Hello") {
		t.Errorf("show output = %q", out.String())
	}

	_, args = ParseArgs([]string{"sessions", "show", "7"})
	if err := HandleSessions(context.Background(), env, args); ExitCode(err) != ExitNotFoundError {
		t.Errorf("out of range exit = %d (%v)", ExitCode(err), err)
	}

	_, args = ParseArgs([]string{"sessions", "show", "first"})
	if err := HandleSessions(context.Background(), env, args); ExitCode(err) != ExitUsageError {
		t.Errorf("non-numeric exit = %d", ExitCode(err))
	}
}

func TestSessions_Search(t *testing.T) {
	env, out := newTestEnv(t)
	env.JSON = true
	seedHistory(t, env)

	_, args := ParseArgs([]string{"sessions", "search", "paris", "--limit", "5"})
	if err := HandleSessions(context.Background(), env, args); err != nil {
		t.Fatal(err)
	}
	resp := decodeResponse(t, out)
	hits, _ := resp.Data.([]any)
	if len(hits) != 1 {
		t.Fatalf("hits = %v, want 1", resp.Data)
	}
	hit := hits[0].(map[string]any)
	if hit["message"] != "Sunny in Paris." || hit["index"] != float64(0) {
		t.Errorf("hit = %v", hit)
	}
}

// =============================================================================
// ASK AND CHAT
// =============================================================================

func TestAsk_StreamsReplyOnce(t *testing.T) {
	env, out := newTestEnv(t)
	b := newFakeBridge(helloReply)
	env.Bridge = b

	_, args := ParseArgs([]string{"ask", "say", "hello"})
	if err := HandleAsk(context.Background(), env, args); err != nil {
		t.Fatalf("HandleAsk() error = %v", err)
	}
	if strings.Count(out.String(), "Hello") != 1 {
		t.Errorf("output = %q, want the reply exactly once", out.String())
	}
	if len(b.sent) != 2 || b.sent[1].Data != "say hello" {
		t.Errorf("sent = %+v", b.sent)
	}
}

func TestAsk_JSON(t *testing.T) {
	env, out := newTestEnv(t)
	env.JSON = true
	env.Bridge = newFakeBridge(helloReply)

	_, args := ParseArgs([]string{"ask", "hi"})
	if err := HandleAsk(context.Background(), env, args); err != nil {
		t.Fatal(err)
	}
	resp := decodeResponse(t, out)
	data, _ := resp.Data.(map[string]any)
	result, _ := data["result"].(map[string]any)
	if result["output"] != "Hello" {
		t.Errorf("data = %v", resp.Data)
	}
}

func TestAsk_TimeoutExitCode(t *testing.T) {
	env, _ := newTestEnv(t)
	env.Bridge = newFakeBridge(func(string) []bridge.Event {
		return []bridge.Event{{Type: bridge.EventChatResult, Data: agent.ErrorResult(&agent.TimeoutError{Seconds: 2})}}
	})

	_, args := ParseArgs([]string{"ask", "slow"})
	err := HandleAsk(context.Background(), env, args)
	if ExitCode(err) != ExitTimeoutError {
		t.Errorf("exit = %d (%v), want %d", ExitCode(err), err, ExitTimeoutError)
	}
}

// ollamaWithModels serves the health check and /api/tags.
func ollamaWithModels(t *testing.T, models ...string) *ollama.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			io.WriteString(w, "Ollama is running")
			return
		}
		var resp ollama.ListModelsResponse
		for _, m := range models {
			resp.Models = append(resp.Models, ollama.ModelInfo{Name: m})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL})
}

func TestAsk_OllamaNotRunningExitCode(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	env, _ := newTestEnv(t)
	b := newFakeBridge(helloReply)
	env.Bridge = b
	env.Backend = ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})

	_, args := ParseArgs([]string{"ask", "hi"})
	err := HandleAsk(context.Background(), env, args)
	if ExitCode(err) != ExitNetworkError {
		t.Errorf("exit = %d (%v), want %d", ExitCode(err), err, ExitNetworkError)
	}
	if len(b.sent) != 0 {
		t.Errorf("agent started despite failed check: %+v", b.sent)
	}
}

func TestAsk_ModelNotPulledExitCode(t *testing.T) {
	env, _ := newTestEnv(t)
	env.Bridge = newFakeBridge(helloReply)
	env.Backend = ollamaWithModels(t, "llama3.2:latest")

	_, args := ParseArgs([]string{"ask", "hi"})
	err := HandleAsk(context.Background(), env, args)
	if ExitCode(err) != ExitNotFoundError {
		t.Errorf("exit = %d (%v), want %d", ExitCode(err), err, ExitNotFoundError)
	}
	if err == nil || !strings.Contains(err.Error(), config.DefaultLLMModel) {
		t.Errorf("err = %v, want it to name the model", err)
	}
}

func TestREPL_ModelNotPulledExitCode(t *testing.T) {
	env, _ := newTestEnv(t)
	env.Quiet = true
	env.Bridge = newFakeBridge(helloReply)
	env.Backend = ollamaWithModels(t)

	err := runREPL(context.Background(), env, &scriptedInput{lines: []string{"hi"}})
	if ExitCode(err) != ExitNotFoundError {
		t.Errorf("exit = %d (%v), want %d", ExitCode(err), err, ExitNotFoundError)
	}
}

func TestAsk_ModelPresent(t *testing.T) {
	env, out := newTestEnv(t)
	env.Bridge = newFakeBridge(helloReply)
	env.Backend = ollamaWithModels(t, config.DefaultLLMModel)

	_, args := ParseArgs([]string{"ask", "hi"})
	if err := HandleAsk(context.Background(), env, args); err != nil {
		t.Fatalf("HandleAsk() error = %v", err)
	}
	if !strings.Contains(out.String(), "Hello") {
		t.Errorf("output = %q", out.String())
	}
}

func TestAsk_EmptyQuery(t *testing.T) {
	env, _ := newTestEnv(t)
	_, args := ParseArgs([]string{"ask"})
	if err := HandleAsk(context.Background(), env, args); ExitCode(err) != ExitUsageError {
		t.Errorf("exit = %d, want %d", ExitCode(err), ExitUsageError)
	}
}

func TestREPL_RecordsSessions(t *testing.T) {
	env, out := newTestEnv(t)
	env.Quiet = true
	b := newFakeBridge(helloReply)
	env.Bridge = b

	input := &scriptedInput{lines: []string{"hi", "", "/new", "again", "/quit"}}
	if err := runREPL(context.Background(), env, input); err != nil {
		t.Fatalf("runREPL() error = %v", err)
	}

	sessions := env.History.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	first := sessions[0]
	if first.Title != "hi" {
		t.Errorf("title = %q", first.Title)
	}
	want := []string{"You: hi", "Hello"}
	if len(first.Messages) != 3 || first.Messages[1] != want[0] || first.Messages[2] != want[1] {
		t.Errorf("messages = %v", first.Messages)
	}
	if !strings.HasPrefix(first.Messages[0], "[Settings] ") {
		t.Errorf("first message = %q", first.Messages[0])
	}

	var resets int
	for _, c := range b.sent {
		if c.Type == bridge.CmdResetChat {
			resets++
		}
	}
	if resets != 1 {
		t.Errorf("reset_chat sent %d times, want 1", resets)
	}
	if !strings.Contains(out.String(), "Started a new chat.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestREPL_FailedTurnIsRecorded(t *testing.T) {
	env, _ := newTestEnv(t)
	env.Quiet = true
	env.Bridge = newFakeBridge(func(string) []bridge.Event {
		return []bridge.Event{{Type: bridge.EventChatResult, Data: agent.Result{Error: "model exploded"}}}
	})

	if err := runREPL(context.Background(), env, &scriptedInput{lines: []string{"hi"}}); err != nil {
		t.Fatalf("runREPL() error = %v", err)
	}
	msgs := env.History.Sessions()[0].Messages
	if msgs[len(msgs)-1] != "Error: model exploded" {
		t.Errorf("messages = %v", msgs)
	}
}

func TestSessions_Export(t *testing.T) {
	env, out := newTestEnv(t)
	seedHistory(t, env)
	dir := t.TempDir()

	_, args := ParseArgs([]string{"sessions", "export", "0", "--format", "json", "--out", dir})
	if err := HandleSessions(context.Background(), env, args); err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out.String(), "Exported to "+dir) {
		t.Errorf("output = %q", out.String())
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "chat_What_is_th_*.json"))
	if len(matches) != 1 {
		t.Fatalf("exported files = %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	var got storage.ChatSession
	if err := json.Unmarshal(data, &got); err != nil || len(got.Messages) != 3 {
		t.Errorf("exported session = %+v (%v)", got, err)
	}

	_, args = ParseArgs([]string{"sessions", "export", "0", "--format", "pdf"})
	if err := HandleSessions(context.Background(), env, args); ExitCode(err) != ExitUsageError {
		t.Errorf("bad format exit = %d", ExitCode(err))
	}
}
