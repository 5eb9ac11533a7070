package cli

import (
	"errors"
	"fmt"
	"strings"

	"ruleboard/internal/editor"

	"github.com/spf13/cobra"
)

// dropFlags describe a drop position: --at N or --over INSTANCE (append when neither).
type dropFlags struct {
	at   int
	over string
}

func (d *dropFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&d.at, "at", -1, "Target index in the bucket (default: append)")
	cmd.Flags().StringVar(&d.over, "over", "", "Drop onto this instance (takes its position)")
}

func (d dropFlags) target(bucket string) editor.DropTarget {
	t := editor.DropTarget{Bucket: strings.TrimSpace(bucket), Index: d.at}
	if over := strings.TrimSpace(d.over); over != "" {
		t.OverInstanceID = over
	}
	if t.Index < 0 {
		t.Index = -1
	}
	return t
}

func parseParams(kvs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q (expected field=value)", kv)
		}
		out[k] = v
	}
	return out, nil
}

func newPlaceCmd(app *App) *cobra.Command {
	var (
		bucket string
		drop   dropFlags
		params []string
	)
	cmd := &cobra.Command{
		Use:   "place <template-id>",
		Short: "Drag a template from the pool into a bucket (creates a new instance)",
		Example: strings.TrimSpace(`
ruleboard place pool-2 --bucket key1
ruleboard place pool-6 --bucket key2 --over copy-7f3 --param fileType=pdf --param uploadedBy=ann
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params)
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(bucket) == "" && strings.TrimSpace(drop.over) == "" {
				return writeErr(cmd, errors.New("place: --bucket or --over is required"))
			}
			ctx := cmd.Context()
			sess, s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tpl, ok := sess.Catalog().Find(args[0])
			if !ok {
				return writeErr(cmd, errNotFound("template", args[0]))
			}
			if !tpl.RequiresInput && len(values) > 0 {
				return writeErr(cmd, fmt.Errorf("template %s takes no parameters", tpl.ID))
			}

			target := drop.target(bucket)
			before := sess.Snapshot()
			out, err := sess.Place(tpl.ID, target, values)
			if err != nil {
				return writeErr(cmd, hintFor(err))
			}
			if out == editor.OutcomeAbandoned {
				return writeErr(cmd, dropRejectedError{source: "pool:" + tpl.ID, target: target})
			}
			created := newInstances(before, sess.Snapshot())
			if len(created) != 1 {
				return writeErr(cmd, errors.New("place: expected exactly one new instance"))
			}
			inst := created[0]
			where, index, _ := sess.Buckets().Locate(inst.InstanceID)
			if err := commit(ctx, s, sess, "instance.place", inst.InstanceID, map[string]any{
				"templateId": tpl.ID, "bucket": where, "index": index, "values": inst.Values,
			}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"instance": inst, "bucket": where, "index": index,
			}})
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "Target bucket")
	drop.register(cmd)
	cmd.Flags().StringArrayVar(&params, "param", nil, "Parameter value field=value (repeatable)")
	return cmd
}

func newMoveCmd(app *App) *cobra.Command {
	var (
		to   string
		drop dropFlags
	)
	cmd := &cobra.Command{
		Use:   "move <instance-id>",
		Short: "Move a placed instance to another bucket (or reorder within its own)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(to) == "" && strings.TrimSpace(drop.over) == "" {
				return writeErr(cmd, errors.New("move: --to or --over is required"))
			}
			target := drop.target(to)
			return runMove(cmd, app, args[0], func(*editor.Session) (editor.DropTarget, error) { return target, nil })
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target bucket")
	drop.register(cmd)
	return cmd
}

func newReorderCmd(app *App) *cobra.Command {
	var at int
	cmd := &cobra.Command{
		Use:   "reorder <instance-id>",
		Short: "Move an instance to a new index within its bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("at") {
				return writeErr(cmd, errors.New("reorder: --at is required"))
			}
			return runMove(cmd, app, args[0], func(sess *editor.Session) (editor.DropTarget, error) {
				bucket, _, _ := sess.Buckets().Locate(args[0])
				return editor.At(bucket, max(at, 0)), nil
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "New index (clamped to the bucket)")
	return cmd
}

// runMove drags an existing instance; target is resolved against the loaded session.
func runMove(cmd *cobra.Command, app *App, instanceID string, target func(*editor.Session) (editor.DropTarget, error)) error {
	ctx := cmd.Context()
	sess, s, err := openSession(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	from, fromIndex, ok := sess.Buckets().Locate(instanceID)
	if !ok {
		return writeErr(cmd, errNotFound("instance", instanceID))
	}
	t, err := target(sess)
	if err != nil {
		return writeErr(cmd, err)
	}
	out, err := sess.Move(instanceID, t)
	if err != nil {
		return writeErr(cmd, err)
	}
	if out == editor.OutcomeAbandoned {
		return writeErr(cmd, dropRejectedError{source: "instance:" + instanceID, target: t})
	}
	to, index, _ := sess.Buckets().Locate(instanceID)
	if to != from || index != fromIndex {
		if err := commit(ctx, s, sess, "instance."+out.String(), instanceID, map[string]any{
			"from": from, "to": to, "index": index,
		}); err != nil {
			return writeErr(cmd, err)
		}
	}
	return writeOut(cmd, app, map[string]any{"data": map[string]any{
		"instanceId": instanceID,
		"outcome":    out.String(),
		"bucket":     to,
		"index":      index,
		"order":      bucketOrder(sess, to),
	}})
}

func bucketOrder(sess *editor.Session, bucket string) []string {
	items := sess.Buckets().Get(bucket)
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.InstanceID)
	}
	return out
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <instance-id>",
		Short: "Remove a placed instance (unknown ids are a no-op)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			bucket, _, _ := sess.Buckets().Locate(args[0])
			removed, err := sess.Engine.Remove(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if removed {
				if err := commit(ctx, s, sess, "instance.remove", args[0], map[string]any{"bucket": bucket}); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"instanceId": args[0], "removed": removed}})
		},
	}
}

func newEditCmd(app *App) *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "edit <instance-id>",
		Short: "Change the parameter values of a placed instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params)
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(values) == 0 {
				return writeErr(cmd, errors.New("edit: at least one --param is required"))
			}
			ctx := cmd.Context()
			sess, s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := sess.Edit(args[0], values); err != nil {
				if errors.Is(err, editor.ErrUnknownSource) {
					return writeErr(cmd, errNotFound("instance", args[0]))
				}
				return writeErr(cmd, hintFor(err))
			}
			bucket, index, _ := sess.Buckets().Locate(args[0])
			inst := sess.Buckets().Get(bucket)[index]
			if err := commit(ctx, s, sess, "instance.edit", args[0], map[string]any{"values": inst.Values}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": inst})
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "Parameter value field=value (repeatable)")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance-id>",
		Short: "Show a placed instance and where it sits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := openSession(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			bucket, index, ok := sess.Buckets().Locate(args[0])
			if !ok {
				return writeErr(cmd, errNotFound("instance", args[0]))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"instance": sess.Buckets().Get(bucket)[index],
				"bucket":   bucket,
				"index":    index,
			}})
		},
	}
}
