// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mcpchat/internal/bridge"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/logging"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/toolserver"
	"github.com/jeranaias/mcpchat/internal/ui/components"
	"github.com/jeranaias/mcpchat/internal/ui/styles"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Worker is the side of the bridge the window talks to. *bridge.Worker
// implements it.
type Worker interface {
	Send(cmd bridge.Command) error
	Events() <-chan bridge.Event
}

// Config holds everything the window needs.
type Config struct {
	Theme    *styles.Theme
	History  *storage.ChatHistory
	Settings *config.Settings
	Registry *toolserver.Registry
	Worker   Worker

	// Changes reports edits to the settings and registry files. Optional.
	Changes <-chan config.FileChange

	// MarkdownStyle is a glamour style name; "" detects the terminal.
	MarkdownStyle string

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	Logger *slog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Pane identifies the focused area of the window.
type Pane int

const (
	PaneInput Pane = iota
	PaneSessions
	PaneServers
	PaneSettings
	paneCount
)

// Sidebar placeholder for a chat that has no messages yet.
const newChatLabel = "(New chat)"

// Model is the chat window.
type Model struct {
	theme    *styles.Theme
	history  *storage.ChatHistory
	settings *config.Settings
	registry *toolserver.Registry
	worker   Worker
	changes  <-chan config.FileChange
	logger   *slog.Logger
	every    time.Duration

	keys       KeyMap
	dialogKeys DialogKeyMap

	// Sidebar
	sessions     components.List
	servers      components.List
	settingsRows components.List

	// Chat area
	transcript Transcript
	viewport   viewport.Model
	input      textinput.Model
	spinner    components.Spinner
	markdown   *components.MarkdownRenderer

	dialog *dialog
	focus  Pane

	// activeIndex is the history session receiving messages, or -1 while
	// the new chat has not been sent its first message.
	activeIndex int
	isNewChat   bool
	// viewing is the sessions row on display.
	viewing int

	initDone bool
	busy     bool
	status   string
}

// New creates the chat window in the new-chat state.
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096

	theme := cfg.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	every := cfg.PollInterval
	if every <= 0 {
		every = DefaultPollInterval
	}

	m := Model{
		theme:        theme,
		history:      cfg.History,
		settings:     cfg.Settings,
		registry:     cfg.Registry,
		worker:       cfg.Worker,
		changes:      cfg.Changes,
		logger:       logging.OrDefault(cfg.Logger),
		every:        every,
		keys:         DefaultKeyMap(),
		dialogKeys:   DefaultDialogKeyMap(),
		sessions:     components.List{Title: "Chat history"},
		servers:      components.List{Title: "MCP servers"},
		settingsRows: components.List{Title: "AI settings"},
		viewport:     viewport.New(80, 20),
		input:        ti,
		spinner:      components.NewSpinner(),
		markdown:     components.NewMarkdownRenderer(cfg.MarkdownStyle),
		activeIndex:  -1,
	}

	m.refreshServers()
	m.refreshSettings()
	m.setNewChatState()
	m.transcript.Append(EntrySystem, "Initializing agent...")
	m.updateViewport()
	return m
}

// Init asks the worker to initialize and starts polling for its events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.sendCmd(bridge.Init()),
		pollCmd(m.every),
	)
}

// =============================================================================
// STATE
// =============================================================================

// currentRow is the sessions row that accepts input.
func (m *Model) currentRow() int {
	if m.isNewChat {
		return m.history.Len()
	}
	return m.activeIndex
}

// InputEnabled reports whether a message can be sent right now.
func (m *Model) InputEnabled() bool {
	return m.initDone && !m.busy && m.dialog == nil && m.viewing == m.currentRow()
}

// setNewChatState shows an empty chat with a "(New chat)" row selected.
func (m *Model) setNewChatState() {
	m.isNewChat = true
	m.activeIndex = -1
	m.refreshSessions()
	m.viewing = m.history.Len()
	m.sessions.Select(m.viewing)
	m.transcript.Clear()
	m.setFocus(PaneInput)
}

// record shows a line when the active chat is on display and stores it
// once the chat exists in history.
func (m *Model) record(kind EntryKind, text string) {
	if m.viewing == m.currentRow() {
		m.transcript.Append(kind, text)
	}
	if m.activeIndex >= 0 && !m.isNewChat {
		if err := m.history.AppendMessage(m.activeIndex, text); err != nil {
			m.logger.Error("append message failed", "index", m.activeIndex, "error", err)
			m.status = fmt.Sprintf("Could not save message: %v", err)
		}
	}
}

// snapshot reads the settings, falling back to defaults on error.
func (m *Model) snapshot() config.Snapshot {
	snap, err := m.settings.Snapshot()
	if err != nil {
		m.logger.Warn("reading settings failed", "error", err)
		return config.SnapshotFrom(config.DefaultSettings())
	}
	return snap
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) refreshSessions() {
	infos := m.history.ListSessions()
	items := make([]string, 0, len(infos)+1)
	for _, info := range infos {
		items = append(items, info.Title)
	}
	if m.isNewChat {
		items = append(items, newChatLabel)
	}
	cursor := m.sessions.Cursor
	m.sessions.SetItems(items)
	if m.isNewChat {
		m.sessions.Muted = map[int]bool{len(items) - 1: true}
	}
	m.sessions.Select(cursor)
}

func (m *Model) refreshServers() {
	names, err := m.registry.Names()
	if err != nil {
		m.logger.Warn("reading tool server registry failed", "error", err)
		m.status = err.Error()
		names = nil
	}
	m.servers.SetItems(names)
}

// SettingsRows formats the settings panel.
func SettingsRows(snap config.Snapshot) []string {
	return []string{
		"AI service: " + snap.AIService,
		"LLM model: " + snap.LLMModel,
		"TEMP: " + config.FormatValue(snap.Temperature),
		fmt.Sprintf("Timeout: %d (s)", snap.Timeout),
		"System prompt: click to edit",
	}
}

func (m *Model) refreshSettings() {
	m.settingsRows.SetItems(SettingsRows(m.snapshot()))
}

// =============================================================================
// FOCUS
// =============================================================================

func (m *Model) setFocus(p Pane) {
	m.focus = p
	if p == PaneInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) cycleFocus(delta int) {
	next := (int(m.focus) + delta + int(paneCount)) % int(paneCount)
	m.setFocus(Pane(next))
}

// Focus returns the focused pane.
func (m *Model) Focus() Pane { return m.focus }

// Busy reports whether a chat request is outstanding.
func (m *Model) Busy() bool { return m.busy }

// Transcript returns the chat display content.
func (m *Model) Transcript() *Transcript { return &m.transcript }

// Status returns the status bar message.
func (m *Model) Status() string { return m.status }

// =============================================================================
// COMMANDS
// =============================================================================

// sendCmd hands cmd to the worker off the update loop; Send may block
// while the inbound queue is full.
func (m Model) sendCmd(cmd bridge.Command) tea.Cmd {
	w := m.worker
	return func() tea.Msg {
		if err := w.Send(cmd); err != nil {
			return SendFailedMsg{Command: cmd, Err: err}
		}
		return nil
	}
}
