// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/ollama"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSettings struct {
	mu   sync.Mutex
	snap config.Snapshot
}

func newFakeSettings(timeoutSecs int) *fakeSettings {
	snap := config.SnapshotFrom(config.DefaultSettings())
	snap.Timeout = timeoutSecs
	return &fakeSettings{snap: snap}
}

func (f *fakeSettings) Snapshot() (config.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, nil
}

func (f *fakeSettings) setTemperature(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Temperature = v
}

type fakeServers struct {
	servers []toolserver.ServerConfig
	err     error
}

func (f fakeServers) Servers() ([]toolserver.ServerConfig, error) { return f.servers, f.err }

type fakeHub struct {
	mu        sync.Mutex
	connected []toolserver.ServerConfig
	tools     []toolserver.Tool
	failures  []toolserver.Failure
	closed    bool
}

func (h *fakeHub) Connect(ctx context.Context, servers []toolserver.ServerConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = servers
	return nil
}
func (h *fakeHub) Tools() []toolserver.Tool { return h.tools }
func (h *fakeHub) Failures() []toolserver.Failure { return h.failures }
func (h *fakeHub) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	return "ok", nil
}
func (h *fakeHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// blockingClient never answers while block is set; otherwise it replies "pong".
type blockingClient struct {
	mu    sync.Mutex
	block bool
}

func (c *blockingClient) setBlock(b bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = b
}

func (c *blockingClient) ChatStreamWithTools(ctx context.Context, model string, messages []ollama.Message, tools []ollama.Tool, opts *ollama.Options, cb ollama.StreamCallback) error {
	c.mu.Lock()
	block := c.block
	c.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	cb(ollama.StreamChunk{Content: "po"})
	cb(ollama.StreamChunk{Content: "ng"})
	cb(ollama.StreamChunk{Done: true})
	return nil
}

type recordingAgent struct {
	mu     sync.Mutex
	resets []agent.ModelSpec
}

func (a *recordingAgent) Chat(ctx context.Context, query, systemPrompt string, timeout time.Duration, emit func(agent.Event)) agent.Result {
	emit(agent.TextFragment{Content: "echo: " + query})
	return agent.Result{Output: "echo: " + query}
}

func (a *recordingAgent) Reset(spec agent.ModelSpec, tools []toolserver.Tool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resets = append(a.resets, spec)
}

// =============================================================================
// HELPERS
// =============================================================================

func startWorker(t *testing.T, cfg Config) *Worker {
	t.Helper()
	if cfg.Settings == nil {
		cfg.Settings = newFakeSettings(5)
	}
	if cfg.Servers == nil {
		cfg.Servers = fakeServers{}
	}
	if cfg.Hub == nil {
		cfg.Hub = &fakeHub{}
	}
	w := NewWorker(cfg)
	w.Start()
	t.Cleanup(func() { w.Close() })
	return w
}

func nextEvent(t *testing.T, w *Worker, within time.Duration) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(within):
		t.Fatalf("no event within %v", within)
		return Event{}
	}
}

func assertQuiet(t *testing.T, w *Worker, d time.Duration) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(d):
	}
}

func echoFactory(a *recordingAgent) AgentFactory {
	return func(spec agent.ModelSpec, tools []toolserver.Tool, caller agent.ToolCaller) Agent {
		return a
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestEvent_Payloads(t *testing.T) {
	ev := textEvent(EventChatMessage, "hi")
	assert.Equal(t, "hi", ev.Text())
	_, ok := ev.Result()
	assert.False(t, ok)

	ev = Event{Type: EventChatResult, Data: agent.Result{Output: "x"}}
	res, ok := ev.Result()
	require.True(t, ok)
	assert.Equal(t, "x", res.Output)
	assert.Equal(t, "", ev.Text())
}

func TestWorker_InitWithZeroServers(t *testing.T) {
	w := startWorker(t, Config{NewAgent: echoFactory(&recordingAgent{})})

	require.NoError(t, w.Send(Init()))
	ev := nextEvent(t, w, time.Second)
	assert.Equal(t, EventInitDone, ev.Type)
	assertQuiet(t, w, 50*time.Millisecond)
}

func TestWorker_InitReportsFailedServers(t *testing.T) {
	hub := &fakeHub{failures: []toolserver.Failure{{Server: "broken", Err: errors.New("exec: not found")}}}
	servers := fakeServers{servers: []toolserver.ServerConfig{{Name: "broken", Command: "nope"}}}
	w := startWorker(t, Config{Hub: hub, Servers: servers, NewAgent: echoFactory(&recordingAgent{})})

	require.NoError(t, w.Send(Init()))

	ev := nextEvent(t, w, time.Second)
	assert.Equal(t, EventSystemMessage, ev.Type)
	assert.Contains(t, ev.Text(), `"broken"`)
	assert.Equal(t, EventInitDone, nextEvent(t, w, time.Second).Type)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Len(t, hub.connected, 1)
}

func TestWorker_InitToleratesBadRegistry(t *testing.T) {
	servers := fakeServers{err: errors.New("bad json")}
	w := startWorker(t, Config{Servers: servers, NewAgent: echoFactory(&recordingAgent{})})

	require.NoError(t, w.Send(Init()))
	assert.Equal(t, EventSystemMessage, nextEvent(t, w, time.Second).Type)
	assert.Equal(t, EventInitDone, nextEvent(t, w, time.Second).Type)
}

func TestWorker_InitSkipsBadRegistryEntry(t *testing.T) {
	hub := &fakeHub{}
	servers := fakeServers{
		servers: []toolserver.ServerConfig{{Name: "weather", Command: "python"}},
		err:     toolserver.EntryErrors{{
			Server: "bad",
			Err:    &toolserver.ValidationError{Message: `"bad" server args[0] must be a string.`},
		}},
	}
	w := startWorker(t, Config{Hub: hub, Servers: servers, NewAgent: echoFactory(&recordingAgent{})})

	require.NoError(t, w.Send(Init()))
	ev := nextEvent(t, w, time.Second)
	assert.Equal(t, EventSystemMessage, ev.Type)
	assert.Contains(t, ev.Text(), `"bad"`)
	assert.Equal(t, EventInitDone, nextEvent(t, w, time.Second).Type)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	require.Len(t, hub.connected, 1)
	assert.Equal(t, "weather", hub.connected[0].Name)
}

func TestWorker_ChatBeforeInit(t *testing.T) {
	w := startWorker(t, Config{NewAgent: echoFactory(&recordingAgent{})})

	require.NoError(t, w.Send(Chat("hello")))
	ev := nextEvent(t, w, time.Second)
	require.Equal(t, EventChatResult, ev.Type)
	res, _ := ev.Result()
	assert.Equal(t, agent.ErrNotInitialized.Error(), res.Error)
}

func TestWorker_ChatStreamsThenResult(t *testing.T) {
	w := startWorker(t, Config{NewAgent: echoFactory(&recordingAgent{})})
	require.NoError(t, w.Send(Init()))
	require.NoError(t, w.Send(Chat("hello")))

	assert.Equal(t, EventInitDone, nextEvent(t, w, time.Second).Type)

	msg := nextEvent(t, w, time.Second)
	assert.Equal(t, EventChatMessage, msg.Type)
	assert.Equal(t, "echo: hello", msg.Text())

	ev := nextEvent(t, w, time.Second)
	require.Equal(t, EventChatResult, ev.Type)
	res, _ := ev.Result()
	assert.Equal(t, "echo: hello", res.Output)
}

func TestWorker_ResetUsesCurrentSettings(t *testing.T) {
	a := &recordingAgent{}
	settings := newFakeSettings(5)
	w := startWorker(t, Config{Settings: settings, NewAgent: echoFactory(a)})

	require.NoError(t, w.Send(Init()))
	assert.Equal(t, EventInitDone, nextEvent(t, w, time.Second).Type)

	settings.setTemperature(0.7)
	require.NoError(t, w.Send(ResetChat()))
	require.NoError(t, w.Send(Chat("after reset")))
	nextEvent(t, w, time.Second)
	nextEvent(t, w, time.Second)

	a.mu.Lock()
	defer a.mu.Unlock()
	require.Len(t, a.resets, 1)
	assert.Equal(t, 0.7, a.resets[0].Temperature)
}

// A turn that outlives the configured timeout yields exactly one
// chat_result carrying the timeout, and the worker keeps serving.
func TestWorker_ChatTimeoutThenRecovers(t *testing.T) {
	client := &blockingClient{block: true}
	w := startWorker(t, Config{
		Settings: newFakeSettings(1),
		NewAgent: SessionFactory(client),
	})

	require.NoError(t, w.Send(Init()))
	assert.Equal(t, EventInitDone, nextEvent(t, w, time.Second).Type)

	require.NoError(t, w.Send(Chat("hello")))
	ev := nextEvent(t, w, 5*time.Second)
	require.Equal(t, EventChatResult, ev.Type)
	res, ok := ev.Result()
	require.True(t, ok)
	assert.Contains(t, res.Error, "timeout")
	assert.Empty(t, res.Output)
	assertQuiet(t, w, 200*time.Millisecond)

	client.setBlock(false)
	require.NoError(t, w.Send(Chat("again")))

	var text string
	for {
		ev := nextEvent(t, w, 2*time.Second)
		if ev.Type == EventChatMessage {
			text += ev.Text()
			continue
		}
		require.Equal(t, EventChatResult, ev.Type)
		res, _ := ev.Result()
		assert.Equal(t, "pong", res.Output)
		break
	}
	assert.Equal(t, "pong", text)
}

func TestWorker_CloseReleasesHub(t *testing.T) {
	hub := &fakeHub{}
	w := NewWorker(Config{Settings: newFakeSettings(5), Servers: fakeServers{}, Hub: hub})
	w.Start()

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Send(Init()), ErrClosed)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.True(t, hub.closed)
	require.NoError(t, w.Close(), "second Close is a no-op")
}
