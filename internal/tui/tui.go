package tui

import (
	"context"
	"errors"

	"ruleboard/internal/editor"
	"ruleboard/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// RemoteSubmitter sends the canonical document somewhere other than the local store.
type RemoteSubmitter = editor.Submitter

type Config struct {
	Session *editor.Session
	Store   store.Store
	// Remote is optional. When set, S posts there and the result is recorded locally.
	Remote    RemoteSubmitter
	Workspace string
	ShowHelp  bool
	Logger    *zap.Logger
}

func Run(ctx context.Context, cfg Config) error {
	if cfg.Session == nil {
		return errors.New("tui: no session")
	}
	applyThemePreference()
	applyColorProfilePreference()
	applyGlyphPreference()

	m := newAppModel(ctx, cfg)
	defer m.close()

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(appModel); ok {
		fm.saveUIState()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
