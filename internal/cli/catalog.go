package cli

import (
	"github.com/spf13/cobra"
)

func newCatalogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the template pool",
	}

	var search string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List templates in pool order",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := openSession(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": sess.Catalog().Search(search)})
		},
	}
	listCmd.Flags().StringVar(&search, "search", "", "Case-insensitive label filter")

	showCmd := &cobra.Command{
		Use:   "show <template-id>",
		Short: "Show one template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := openSession(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tpl, ok := sess.Catalog().Find(args[0])
			if !ok {
				return writeErr(cmd, errNotFound("template", args[0]))
			}
			return writeOut(cmd, app, map[string]any{"data": tpl})
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func newBucketsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "Inspect rule buckets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List buckets in declared order with their sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := openSession(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			snap := sess.Snapshot()
			out := make([]map[string]any, 0, len(snap.Order))
			for _, name := range snap.Order {
				out = append(out, map[string]any{
					"name":      name,
					"count":     len(snap.Buckets[name]),
					"collapsed": sess.State().IsCollapsed(name),
				})
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <bucket>",
		Short: "Show a bucket's instances in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := openSession(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !sess.Buckets().HasBucket(args[0]) {
				return writeErr(cmd, errNotFound("bucket", args[0]))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"name":      args[0],
				"instances": sess.Buckets().Get(args[0]),
			}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "collapse <bucket>",
		Short: "Fold a bucket in the editor (drops onto it are rejected)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setCollapsed(cmd, app, args[0], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "expand <bucket>",
		Short: "Unfold a collapsed bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setCollapsed(cmd, app, args[0], false)
		},
	})

	return cmd
}

func setCollapsed(cmd *cobra.Command, app *App, bucket string, collapsed bool) error {
	sess, s, err := openSession(cmd.Context(), app)
	if err != nil {
		return writeErr(cmd, err)
	}
	if !sess.Buckets().HasBucket(bucket) {
		return writeErr(cmd, errNotFound("bucket", bucket))
	}
	st, err := s.LoadTUIState()
	if err != nil {
		return writeErr(cmd, err)
	}
	st.Collapsed = toggleName(st.Collapsed, bucket, collapsed)
	if err := s.SaveTUIState(st); err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, map[string]any{"data": map[string]any{"bucket": bucket, "collapsed": collapsed}})
}

func toggleName(names []string, name string, on bool) []string {
	out := make([]string, 0, len(names)+1)
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	if on {
		out = append(out, name)
	}
	return out
}
