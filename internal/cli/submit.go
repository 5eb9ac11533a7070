package cli

import (
	"context"
	"time"

	"ruleboard/internal/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPreviewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Print the canonical submission document without submitting",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := openSession(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": sess.Preview()})
		},
	}
}

func newSubmitCmd(app *App) *cobra.Command {
	var useRemote bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit the canonical document (recorded locally; --remote posts it to the configured backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			sess, s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			doc := sess.Preview()

			var res model.SubmitResult
			if useRemote {
				client, err := remoteClient(app)
				if err != nil {
					return writeErr(cmd, err)
				}
				res, err = sess.Submit(ctx, client)
				if err != nil {
					return writeErr(cmd, err)
				}
				// Keep a local copy of what the backend accepted. The submit itself stands
				// even when that copy fails.
				recorded, err := s.RecordSubmission(ctx, doc, res)
				if err != nil {
					app.logger().Warn("submission accepted but not recorded locally", zap.String("id", res.ID), zap.Error(err))
					_ = s.AppendEvent("assignment.submit", res.ID, map[string]any{"target": res.Target, "status": res.Status, "recorded": false})
					return writeOut(cmd, app, map[string]any{
						"data":     res,
						"warnings": []string{"local record failed: " + err.Error()},
					})
				}
				res = recorded
			} else {
				res, err = sess.Submit(ctx, s)
				if err != nil {
					return writeErr(cmd, err)
				}
			}
			_ = s.AppendEvent("assignment.submit", res.ID, map[string]any{"target": res.Target, "status": res.Status})
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().BoolVar(&useRemote, "remote", false, "POST to remote.submitUrl from ~/.ruleboard/config.json")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall submit timeout")
	return cmd
}

func newSubmissionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "Inspect submission history",
	}
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions (newest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			subs, err := storeAt(dir).ListSubmissions(cmd.Context(), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": subs})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Max submissions to return (0 = all)")
	cmd.AddCommand(listCmd)
	return cmd
}
