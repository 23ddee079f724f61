// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mcpchat/internal/bridge"
)

// DefaultPollInterval is how often the worker's outbound queue is drained
// when Config.PollInterval is unset.
const DefaultPollInterval = 100 * time.Millisecond

// PollMsg triggers a drain of the worker and file watcher queues.
type PollMsg time.Time

// SendFailedMsg reports a command the worker did not accept.
type SendFailedMsg struct {
	Command bridge.Command
	Err     error
}

func pollCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return PollMsg(t)
	})
}
