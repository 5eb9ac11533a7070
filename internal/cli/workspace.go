package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"ruleboard/internal/editor"
	"ruleboard/internal/model"
	"ruleboard/internal/remote"
	"ruleboard/internal/store"

	"github.com/spf13/cobra"
)

// openSession hydrates an editor session from the workspace store.
func openSession(ctx context.Context, app *App) (*editor.Session, store.Store, error) {
	dir, err := resolveDir(app)
	if err != nil {
		return nil, store.Store{}, err
	}
	s := store.Store{Dir: dir}
	sess := editor.NewSession(editor.Options{IDs: editor.NewRandomIDs(), Logger: app.logger()})
	if err := sess.Load(ctx, s); err != nil {
		return nil, s, hintFor(err)
	}
	// Folded buckets reject scripted drops the same way they do in the editors.
	if st, err := s.LoadTUIState(); err == nil {
		for _, b := range st.Collapsed {
			_, _ = sess.Apply(editor.CollapseCmd{Bucket: b, Collapsed: true})
		}
	}
	return sess, s, nil
}

// commit persists the session and records one event for the mutation.
func commit(ctx context.Context, s store.Store, sess *editor.Session, typ, entityID string, payload any) error {
	if err := s.SaveAssignment(ctx, sess.Assignment()); err != nil {
		return err
	}
	return s.AppendEvent(typ, entityID, payload)
}

// remoteClient builds the HTTP backend from the global config.
func remoteClient(app *App) (*remote.Client, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Remote == nil || (strings.TrimSpace(cfg.Remote.LoadURL) == "" && strings.TrimSpace(cfg.Remote.SubmitURL) == "") {
		return nil, errors.New("no remote configured (set remote.loadUrl / remote.submitUrl in ~/.ruleboard/config.json)")
	}
	return remote.New(remote.Config{
		LoadURL:   cfg.Remote.LoadURL,
		SubmitURL: cfg.Remote.SubmitURL,
		Timeout:   cfg.Remote.Timeout(),
		Headers:   cfg.Remote.Headers,
	}, app.logger()), nil
}

// newInstances lists instances present in after but not in before.
func newInstances(before, after editor.Snapshot) []model.ItemInstance {
	var out []model.ItemInstance
	for _, name := range after.Order {
		for _, it := range after.Buckets[name] {
			if _, _, ok := before.Locate(it.InstanceID); !ok {
				out = append(out, it)
			}
		}
	}
	return out
}

func newWorkspaceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "List and select named workspaces",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workspaces under ~/.ruleboard/workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := store.ListWorkspaces()
			if err != nil {
				return writeErr(cmd, err)
			}
			current := ""
			if cfg, err := store.LoadConfig(); err == nil {
				current = cfg.CurrentWorkspace
			}
			return writeOut(cmd, app, map[string]any{"data": names, "current": current})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "use <name>",
		Short: "Set the current workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := store.NormalizeWorkspaceName(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg.CurrentWorkspace = name
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			dir, _ := store.WorkspaceDir(name)
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"workspace": name, "dir": dir}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Show the resolved workspace and its directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			ok, err := store.Store{Dir: dir}.Initialized(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"workspace":   app.Workspace,
				"dir":         dir,
				"initialized": ok,
			}})
		},
	})

	return cmd
}
