// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mcpchat/internal/bridge"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		if m.dialog != nil {
			return m.handleDialogKey(msg)
		}
		return m.handleKey(msg)

	case PollMsg:
		return m.handlePoll()

	case SendFailedMsg:
		m.logger.Error("worker rejected command", "command", msg.Command.Type, "error", msg.Err)
		m.busy = false
		m.spinner.Stop()
		m.status = "Agent is not running: " + msg.Err.Error()
		return m, nil
	}

	cmd := m.spinner.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.theme.SetSize(msg.Width, msg.Height)
	width := m.theme.TranscriptWidth()

	// header, status bar, spinner line, input box and pane borders
	height := msg.Height - 8
	if height < 3 {
		height = 3
	}
	m.viewport.Width = width
	m.viewport.Height = height
	m.input.Width = width - 4
	if m.dialog != nil {
		m.dialog.resize(msg.Width, msg.Height)
	}
	m.updateViewport()
	return m, nil
}

// =============================================================================
// WORKER EVENTS
// =============================================================================

// handlePoll drains every queued worker event and file change, then
// schedules the next poll.
func (m Model) handlePoll() (tea.Model, tea.Cmd) {
	changed := false
drain:
	for {
		select {
		case ev := <-m.worker.Events():
			m.handleEvent(ev)
			changed = true
		default:
			break drain
		}
	}

	if m.changes != nil {
	changes:
		for {
			select {
			case fc, ok := <-m.changes:
				if !ok {
					m.changes = nil
					break changes
				}
				m.handleFileChange(fc)
			default:
				break changes
			}
		}
	}

	if changed {
		m.updateViewport()
	}
	return m, pollCmd(m.every)
}

// handleEvent applies one worker event.
func (m *Model) handleEvent(ev bridge.Event) {
	switch ev.Type {
	case bridge.EventInitDone:
		m.initDone = true
		m.record(EntrySystem, "Agent initialization done. Enter your message.")

	case bridge.EventChatMessage:
		if m.viewing == m.currentRow() {
			m.transcript.Stream(ev.Text())
		}

	case bridge.EventChatResult:
		m.finishTurn()
		res, ok := ev.Result()
		switch {
		case !ok:
			m.record(EntryError, storage.ErrorLine("output not found in response."))
		case res.Failed():
			m.record(EntryError, storage.ErrorLine(res.Error))
		default:
			if res.ToolCalls != "" {
				m.record(EntryTool, res.ToolCalls)
			}
			m.record(EntryAssistant, res.Output)
		}

	case bridge.EventChatError:
		m.finishTurn()
		m.record(EntryError, storage.ErrorLine(ev.Text()))

	case bridge.EventSystemMessage:
		m.record(EntrySystem, ev.Text())
	}
}

func (m *Model) finishTurn() {
	m.busy = false
	m.spinner.Stop()
	m.transcript.EndStream()
	if m.dialog == nil {
		m.setFocus(PaneInput)
	}
}

func (m *Model) handleFileChange(fc config.FileChange) {
	m.logger.Debug("file changed", "path", fc.Path, "kind", fc.Kind)
	switch fc.Kind {
	case config.KindSettings:
		m.refreshSettings()
		m.status = "Settings reloaded."
	case config.KindRegistry:
		m.refreshServers()
		m.status = "Tool servers changed. Restart to reconnect."
	}
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextPane):
		m.cycleFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevPane):
		m.cycleFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.FocusInput):
		m.setFocus(PaneInput)
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		return m.startNewChat()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	switch m.focus {
	case PaneInput:
		return m.handleInputKey(msg)
	case PaneSessions:
		m.navigateList(msg, &m.sessions, m.selectSession)
	case PaneServers:
		if key.Matches(msg, m.keys.AddServer) {
			m.openServerDialog("")
			return m, nil
		}
		m.navigateList(msg, &m.servers, func(i int) {
			m.openServerDialog(m.servers.Items[i])
		})
	case PaneSettings:
		m.navigateList(msg, &m.settingsRows, func(i int) {
			if i < len(config.SettingKeys) {
				m.openSettingDialog(config.SettingKeys[i])
			}
		})
	}
	return m, nil
}

// navigateList moves the cursor of list or opens its selected row.
func (m *Model) navigateList(msg tea.KeyMsg, list *components.List, open func(int)) {
	switch {
	case key.Matches(msg, m.keys.Up):
		list.Up()
	case key.Matches(msg, m.keys.Down):
		list.Down()
	case key.Matches(msg, m.keys.Open):
		if i := list.Selected(); i >= 0 {
			open(i)
		}
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		return m.sendMessage()
	}
	if !m.InputEnabled() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

// sendMessage submits the input line. The first message of a new chat
// creates its history session.
func (m Model) sendMessage() (tea.Model, tea.Cmd) {
	message := strings.TrimSpace(m.input.Value())
	if message == "" || !m.InputEnabled() {
		return m, nil
	}
	m.input.Reset()
	m.transcript.Append(EntryUser, storage.UserLine(message))

	if m.isNewChat {
		snap := m.snapshot()
		idx, err := m.history.CreateSession(storage.TitleFor(message), storage.NewSessionMessages(snap, message))
		if err != nil {
			m.logger.Error("create session failed", "error", err)
			m.status = "Could not save chat: " + err.Error()
		} else {
			m.isNewChat = false
			m.activeIndex = idx
			m.viewing = idx
			m.refreshSessions()
			m.sessions.Select(idx)
		}
	} else if err := m.history.AppendMessage(m.activeIndex, storage.UserLine(message)); err != nil {
		m.logger.Error("append message failed", "error", err)
		m.status = "Could not save message: " + err.Error()
	}

	m.busy = true
	m.updateViewport()
	return m, tea.Batch(m.spinner.Start("Thinking"), m.sendCmd(bridge.Chat(message)))
}

// startNewChat discards the agent's conversation and shows an empty chat.
func (m Model) startNewChat() (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "Wait for the current reply to finish."
		return m, nil
	}
	if m.isNewChat && m.viewing == m.currentRow() {
		return m, nil
	}
	m.setNewChatState()
	m.status = ""
	m.updateViewport()
	return m, m.sendCmd(bridge.ResetChat())
}

// selectSession shows the session on row i. Only the current chat accepts
// input.
func (m *Model) selectSession(i int) {
	m.viewing = i
	switch {
	case m.isNewChat && i == m.history.Len():
		m.transcript.Clear()
	default:
		msgs, err := m.history.GetMessages(i)
		if err != nil {
			m.status = err.Error()
			return
		}
		m.transcript.Load(msgs)
	}
	if i == m.currentRow() {
		m.setFocus(PaneInput)
	}
	m.updateViewport()
}

func (m *Model) updateViewport() {
	m.viewport.SetContent(m.transcript.Render(m.theme, m.markdown, m.viewport.Width))
	m.viewport.GotoBottom()
}
