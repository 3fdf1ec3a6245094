package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"etapas-cli/internal/metrics"
	"etapas-cli/internal/webui"

	"github.com/spf13/cobra"
)

func newWebCmd(app *App) *cobra.Command {
	var addr string
	var open bool

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the stage screen as a web page",
		Long: strings.TrimSpace(`
Serve the stage screen from a local HTTP server.

Every browser session gets its own screen state. Actions use Datastar and
fall back to plain form posts when JavaScript is off. Prometheus metrics
are exposed on /metrics.
`),
		Example: strings.TrimSpace(`
etapas web --addr 127.0.0.1:3335
etapas --api https://etapas.example.com/api web --addr :3335 --open=false
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Settings()
			if err != nil {
				return writeErr(cmd, err)
			}
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}
			gw, err := newGateway(s)
			if err != nil {
				return writeErr(cmd, err)
			}

			rec := metrics.New()
			srv, err := webui.NewServer(webui.ServerConfig{
				Addr:     listenAddr,
				Gateway:  gw,
				Source:   gw.BaseURL(),
				Recorder: rec,
				Metrics:  rec.Handler(),
				Logger:   slog.Default(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			url := "http://" + listenAddr + "/"
			opened := false
			openErr := ""
			if open {
				if err := openBrowser(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      listenAddr,
					"url":       url,
					"api":       gw.BaseURL(),
					"opened":    opened,
					"openError": openErr,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "etapas web running at %s (api=%s)\n", url, gw.BaseURL())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := srv.ListenAndServe(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3335", "Bind address (host:port or :port)")
	cmd.Flags().BoolVar(&open, "open", true, "Open the page in your default browser")
	return cmd
}

func openBrowser(url string) error {
	var argv []string
	switch runtime.GOOS {
	case "darwin":
		argv = []string{"open", url}
	case "windows":
		argv = []string{"cmd", "/c", "start", "", url}
	default:
		argv = []string{"xdg-open", url}
	}
	return exec.Command(argv[0], argv[1:]...).Start()
}
