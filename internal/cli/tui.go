package cli

import (
	"ruleboard/internal/store"
	"ruleboard/internal/tui"

	"github.com/spf13/cobra"
)

// runTUI opens the interactive editor on the resolved workspace.
func runTUI(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	sess, s, err := openSession(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	showHelp := true
	if cfg, err := store.LoadConfig(); err == nil && cfg.TUI != nil {
		showHelp = cfg.TUI.ShowHelp
	}
	var submitter tui.RemoteSubmitter
	if client, err := remoteClient(app); err == nil {
		submitter = client
	}
	if err := tui.Run(ctx, tui.Config{
		Session:   sess,
		Store:     s,
		Remote:    submitter,
		Workspace: app.Workspace,
		ShowHelp:  showHelp,
		Logger:    app.logger().Named("tui"),
	}); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
