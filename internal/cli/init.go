package cli

import (
	"errors"
	"path/filepath"
	"strings"

	"ruleboard/internal/editor"
	"ruleboard/internal/model"
	"ruleboard/internal/store"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var (
		demo    bool
		from    string
		buckets []string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace (empty, demo catalog, or from a YAML/JSON file)",
		Example: strings.TrimSpace(`
ruleboard init --demo
ruleboard init --from rules.yaml
ruleboard --workspace team init --bucket approve --bucket reject
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if demo && strings.TrimSpace(from) != "" {
				return writeErr(cmd, errors.New("init: --demo and --from are mutually exclusive"))
			}
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			s := store.Store{Dir: dir}
			if err := s.Ensure(); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			if ok, err := s.Initialized(ctx); err != nil {
				return writeErr(cmd, err)
			} else if ok && !force {
				return writeErr(cmd, errors.New("init: workspace already initialized (use --force to replace it)"))
			}

			if from, err = store.ExpandPath(from); err != nil {
				return writeErr(cmd, err)
			}

			var a model.Assignment
			switch {
			case from != "":
				a, err = store.ReadAssignmentFile(from)
				if err != nil {
					return writeErr(cmd, err)
				}
			case demo:
				a = store.DemoAssignment()
			default:
				a = model.Assignment{Catalog: []model.TemplateItem{}}
				for _, b := range buckets {
					a.Buckets = append(a.Buckets, model.Bucket{Name: b})
				}
			}

			// Validate through a session so a bad catalog never reaches the workspace.
			sess := editor.NewSession(editor.Options{Logger: app.logger()})
			if err := sess.Hydrate(a); err != nil {
				return writeErr(cmd, err)
			}
			// The seed copy only lands once the file has been validated above.
			if from != "" {
				if err := s.ImportSeed(from); err != nil {
					return writeErr(cmd, err)
				}
			}
			if err := s.SaveAssignment(ctx, sess.Assignment()); err != nil {
				return writeErr(cmd, err)
			}
			_ = s.AppendEvent("workspace.init", filepath.Base(dir), map[string]any{"demo": demo, "from": from})

			// Workspace mode without a current workspace: select this one.
			if app.Workspace != "" {
				cfg, err := store.LoadConfig()
				if err == nil && cfg.CurrentWorkspace == "" {
					cfg.CurrentWorkspace = app.Workspace
					_ = store.SaveConfig(cfg)
				}
			}

			snap := sess.Snapshot()
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":       dir,
					"templates": sess.Catalog().Len(),
					"buckets":   snap.Order,
					"instances": snap.Total(),
				},
			})
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Seed the demo loan-processing catalog with buckets key1..key3")
	cmd.Flags().StringVar(&from, "from", "", "Seed from an assignment file (.yaml/.yml/.json)")
	cmd.Flags().StringArrayVar(&buckets, "bucket", []string{"key1", "key2", "key3"}, "Bucket names for an empty workspace (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing workspace state")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Write the workspace state as a seed file (.yaml or .json) for `init --from`",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := store.ExpandPath(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			a, err := storeAt(dir).ExportAssignment(cmd.Context(), path)
			if err != nil {
				return writeErr(cmd, hintFor(err))
			}
			total := 0
			for _, b := range a.Buckets {
				total += len(b.Instances)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"path":      path,
				"templates": len(a.Catalog),
				"buckets":   len(a.Buckets),
				"instances": total,
			}})
		},
	}
}
