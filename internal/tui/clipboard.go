package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

type clipboardDoneMsg struct {
	what string
	err  error
}

// writeClipboard is swapped in tests so they never touch the host clipboard.
var writeClipboard = clipboard.WriteAll

func copyToClipboard(what, s string) tea.Cmd {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return func() tea.Msg {
		return clipboardDoneMsg{what: what, err: writeClipboard(s)}
	}
}
