// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// =============================================================================
// DIALOG STATE
// =============================================================================

type dialogKind int

const (
	dialogSetting dialogKind = iota
	dialogServer
)

// dialog edits one setting or one tool server entry.
type dialog struct {
	kind dialogKind

	// key is the setting name or the server name of an existing entry.
	key   string
	isNew bool

	name      textinput.Model
	value     textinput.Model
	body      textarea.Model
	multiline bool
	onName    bool

	message string
	failed  bool
}

func newSettingDialog(key string, current any) *dialog {
	d := &dialog{kind: dialogSetting, key: key}
	if key == config.KeyPrompt {
		d.multiline = true
		d.body = newBody(config.FormatValue(current))
		d.body.Focus()
		return d
	}
	d.value = textinput.New()
	d.value.Prompt = ""
	d.value.SetValue(config.FormatValue(current))
	d.value.Focus()
	return d
}

func newServerDialog(name, entryJSON string) *dialog {
	d := &dialog{kind: dialogServer, key: name, isNew: name == "", multiline: true}
	d.name = textinput.New()
	d.name.Prompt = "Server name: "
	d.name.SetValue(name)
	d.body = newBody(entryJSON)
	if d.isNew {
		d.onName = true
		d.name.Focus()
	} else {
		d.body.Focus()
	}
	return d
}

func newBody(text string) textarea.Model {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(60)
	ta.SetHeight(12)
	ta.SetValue(text)
	return ta
}

func (d *dialog) resize(width, height int) {
	w := width - 12
	if w > 80 {
		w = 80
	}
	if w < 20 {
		w = 20
	}
	h := height - 14
	if h > 16 {
		h = 16
	}
	if h < 3 {
		h = 3
	}
	d.body.SetWidth(w)
	d.body.SetHeight(h)
	d.value.Width = w
}

func (d *dialog) text() string {
	if d.multiline {
		return d.body.Value()
	}
	return d.value.Value()
}

func (d *dialog) serverName() string {
	if d.isNew {
		return strings.TrimSpace(d.name.Value())
	}
	return d.key
}

func (d *dialog) fail(msg string) {
	d.message = msg
	d.failed = true
}

func (d *dialog) title() string {
	if d.kind == dialogServer {
		return "MCP server config"
	}
	return "Modify AI settings"
}

// =============================================================================
// OPENING
// =============================================================================

func (m *Model) openSettingDialog(key string) {
	m.dialog = newSettingDialog(key, m.snapshot().Value(key))
	m.dialog.resize(m.theme.Width, m.theme.Height)
	m.input.Blur()
}

// openServerDialog edits name, or a new server from the template when name
// is empty.
func (m *Model) openServerDialog(name string) {
	text := toolserver.TemplateJSON()
	if name != "" {
		entry, err := m.registry.EntryJSON(name)
		if err != nil {
			m.logger.Warn("reading server entry failed", "server", name, "error", err)
			m.status = err.Error()
			return
		}
		text = entry
	}
	m.dialog = newServerDialog(name, text)
	m.dialog.resize(m.theme.Width, m.theme.Height)
	m.input.Blur()
}

func (m *Model) closeDialog() {
	m.dialog = nil
	if m.focus == PaneInput {
		m.input.Focus()
	}
}

// =============================================================================
// DIALOG KEYS
// =============================================================================

func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.dialog
	switch {
	case key.Matches(msg, m.dialogKeys.Close):
		m.closeDialog()
		return m, nil
	case key.Matches(msg, m.dialogKeys.Save):
		if d.kind == dialogServer {
			m.saveServer()
		} else {
			m.saveSetting()
		}
		m.updateViewport()
		return m, nil
	case key.Matches(msg, m.dialogKeys.Delete) && d.kind == dialogServer:
		m.deleteServer()
		return m, nil
	case key.Matches(msg, m.dialogKeys.Switch) && d.kind == dialogServer && d.isNew:
		d.onName = !d.onName
		if d.onName {
			d.body.Blur()
			d.name.Focus()
		} else {
			d.name.Blur()
			d.body.Focus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch {
	case d.kind == dialogServer && d.onName:
		d.name, cmd = d.name.Update(msg)
	case d.multiline:
		d.body, cmd = d.body.Update(msg)
	default:
		d.value, cmd = d.value.Update(msg)
	}
	return m, cmd
}

// saveSetting parses and stores the edited value, then notes the change in
// the transcript.
func (m *Model) saveSetting() {
	d := m.dialog
	value, err := config.ParseSettingValue(d.key, d.text())
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			d.fail(verr.Message)
		} else {
			d.fail(err.Error())
		}
		return
	}
	if err := m.settings.Set(d.key, value); err != nil {
		m.logger.Error("saving setting failed", "key", d.key, "error", err)
		d.fail(err.Error())
		return
	}

	m.refreshSettings()
	m.record(EntrySettings, storage.SettingsChangedLine(d.key, value))
	m.status = "Settings saved."
	m.closeDialog()
}

func (m *Model) saveServer() {
	d := m.dialog
	name := d.serverName()
	if err := m.registry.PutServer(name, d.body.Value()); err != nil {
		d.fail(err.Error())
		return
	}
	m.refreshServers()
	m.status = "Server settings saved."
	m.closeDialog()
}

func (m *Model) deleteServer() {
	d := m.dialog
	err := m.registry.DeleteServer(d.serverName())
	switch {
	case errors.Is(err, toolserver.ErrServerNotFound):
		d.fail("Server does not exist.")
		return
	case err != nil:
		d.fail(err.Error())
		return
	}
	m.refreshServers()
	m.status = "Server deleted."
	m.closeDialog()
}

// =============================================================================
// DIALOG VIEW
// =============================================================================

func (m Model) renderDialog() string {
	d := m.dialog
	t := m.theme

	var b strings.Builder
	b.WriteString(t.DialogTitle.Render(d.title()))
	b.WriteString("\n")

	switch d.kind {
	case dialogSetting:
		b.WriteString("Setting item: " + d.key + "\n")
		if d.key == config.KeyAIService {
			b.WriteString(t.DialogHint.Render("Options: "+strings.Join(config.SupportedAIServices, ", ")) + "\n")
		}
		if d.multiline {
			b.WriteString(d.body.View())
		} else {
			b.WriteString(d.value.View())
		}
	case dialogServer:
		b.WriteString(d.name.View())
		b.WriteString("\n\n")
		b.WriteString(d.body.View())
	}

	if d.message != "" {
		b.WriteString("\n\n")
		if d.failed {
			b.WriteString(t.DialogError.Render(d.message))
		} else {
			b.WriteString(t.DialogOK.Render(d.message))
		}
	}

	hints := []key.Binding{m.dialogKeys.Save, m.dialogKeys.Close}
	if d.kind == dialogServer {
		hints = append(hints, m.dialogKeys.Delete)
		if d.isNew {
			hints = append(hints, m.dialogKeys.Switch)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(t.DialogHint.Render(helpLine(hints)))

	box := t.Dialog.Render(b.String())
	return lipgloss.Place(t.Width, t.Height, lipgloss.Center, lipgloss.Center, box)
}
