package cli

import (
	"fmt"
	"os"
	"strings"

	"ruleboard/internal/format"
	"ruleboard/internal/logging"
	"ruleboard/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	Dir        string
	Workspace  string
	PrettyJSON bool
	Format     string
	Verbose    bool

	log *zap.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "ruleboard",
		Short:        "Rule assignment editor (TUI, web dashboard and scriptable CLI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create a workspace with the demo catalog, then open the editor
  ruleboard init --demo
  ruleboard

  # Scriptable edits
  ruleboard place pool-2 --bucket key1
  ruleboard place pool-1 --bucket key1 --at 0 --param applicantName=Ada --param loanAmount=5000
  ruleboard move copy-1234 --to key2 --at 0

  # Inspect or send the canonical document
  ruleboard preview --pretty
  ruleboard submit --remote
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive editor.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.log != nil {
			_ = app.log.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("RULEBOARD_DIR", ""), "Path to workspace dir (overrides workspace resolution)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("RULEBOARD_WORKSPACE", ""), "Workspace name (default: 'default')")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("RULEBOARD_FORMAT", "json"), "Output format (json|edn)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", envOr("RULEBOARD_VERBOSE", "") != "", "Debug-level logging to <workspace>/logs")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newWorkspaceCmd(app))
	cmd.AddCommand(newCatalogCmd(app))
	cmd.AddCommand(newBucketsCmd(app))
	cmd.AddCommand(newPlaceCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newReorderCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newPreviewCmd(app))
	cmd.AddCommand(newSubmitCmd(app))
	cmd.AddCommand(newSubmissionsCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newWebCmd(app))

	return cmd
}

// resolveDir picks the workspace dir:
// 1) --dir / RULEBOARD_DIR
// 2) --workspace
// 3) ~/.ruleboard/config.json currentWorkspace
// 4) default workspace ("default")
func resolveDir(app *App) (string, error) {
	if app.Dir != "" {
		d, err := store.ExpandPath(app.Dir)
		if err != nil {
			return "", err
		}
		app.Dir = d
		return d, nil
	}
	if app.Workspace != "" {
		d, err := store.WorkspaceDir(app.Workspace)
		if err != nil {
			return "", err
		}
		app.Dir = d
		return d, nil
	}
	if cfg, err := store.LoadConfig(); err == nil && cfg.CurrentWorkspace != "" {
		d, err := store.WorkspaceDir(cfg.CurrentWorkspace)
		if err != nil {
			return "", err
		}
		app.Workspace = cfg.CurrentWorkspace
		app.Dir = d
		return d, nil
	}
	app.Workspace = "default"
	d, err := store.WorkspaceDir(app.Workspace)
	if err != nil {
		return "", err
	}
	app.Dir = d
	return d, nil
}

// logger builds the workspace file logger once. Logging never blocks a command: on failure
// a no-op logger is used.
func (app *App) logger() *zap.Logger {
	if app.log != nil {
		return app.log
	}
	dir, err := resolveDir(app)
	if err != nil {
		app.log = logging.Nop()
		return app.log
	}
	level := ""
	if cfg, err := store.LoadConfig(); err == nil {
		level = cfg.LogLevel()
	}
	l, err := logging.New(logging.Options{Dir: store.Store{Dir: dir}.LogDir(), Level: level, Verbose: app.Verbose})
	if err != nil {
		app.log = logging.Nop()
		return app.log
	}
	app.log = l.With(zap.String("workspace", app.Workspace))
	return app.log
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
