package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"ruleboard/internal/store"
	"ruleboard/internal/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type webFlags struct {
	addr       string
	open       bool
	remote     bool
	loadRemote bool
}

func newWebCmd(app *App) *cobra.Command {
	var f webFlags

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the drag-and-drop board in a browser",
		Long: strings.TrimSpace(`
Serve the board from a local HTTP server.

Every open tab shares one editor session and receives #board patches over an SSE stream.
Changes are saved to the workspace as they happen. Ctrl-C shuts the server down cleanly.
`),
		Example: strings.TrimSpace(`
ruleboard web
ruleboard --workspace review web --addr :8080 --open=false
ruleboard web --remote --load-remote
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			listenAddr := strings.TrimSpace(f.addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := app.logger().Named("web")
			cfg := web.ServerConfig{
				Dir:       dir,
				Workspace: strings.TrimSpace(app.Workspace),
				Logger:    log,
			}
			if f.remote || f.loadRemote {
				client, err := remoteClient(app)
				if err != nil {
					return writeErr(cmd, err)
				}
				if f.remote {
					cfg.Submitter = client
				}
				if f.loadRemote {
					cfg.Loader = client
				}
			}

			srv, err := web.NewServer(ctx, cfg)
			if err != nil {
				return writeErr(cmd, hintFor(err))
			}
			defer srv.Close()

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + ln.Addr().String() + "/"

			var openErr error
			if f.open {
				openErr = openBrowser(url)
			}
			hints := []string{}
			if !f.open || openErr != nil {
				hints = append(hints, "open "+url)
			}
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"dir":       dir,
					"remote":    f.remote,
					"opened":    f.open && openErr == nil,
					"startedAt": time.Now().UTC().Format(time.RFC3339),
				},
				"_hints": hints,
			})
			if openErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "could not open a browser: %v\n", openErr)
			}

			log.Info("listening", zap.String("url", url), zap.String("dir", dir), zap.Bool("remote", f.remote))
			_ = store.Store{Dir: dir}.AppendEvent("web.start", ln.Addr().String(), map[string]any{"url": url})
			return serveUntilDone(ctx, ln, srv.Handler(), log)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "127.0.0.1:3335", "Bind address (host:port or :port)")
	cmd.Flags().BoolVar(&f.open, "open", true, "Open the board in your default browser")
	cmd.Flags().BoolVar(&f.remote, "remote", false, "Submit to remote.submitUrl instead of the local history only")
	cmd.Flags().BoolVar(&f.loadRemote, "load-remote", false, "Load the starting assignment from remote.loadUrl")
	return cmd
}

// serveUntilDone serves h on ln until ctx is cancelled, then drains open requests. SSE
// streams end on their own once the request contexts are cancelled by Shutdown.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler, log *zap.Logger) error {
	hs := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
