package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"etapas-cli/internal/webtui"

	"github.com/spf13/cobra"
)

func newWebTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the terminal screen in your browser (PTY + WebSocket)",
		Long: strings.TrimSpace(`
Run the Bubble Tea screen over the web via a server-side PTY and a browser
terminal emulator. Each browser tab starts its own etapas process on the
server. There is no authentication: bind to localhost.
`),
		Example: strings.TrimSpace(`
etapas webtui --addr 127.0.0.1:3334
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Settings()
			if err != nil {
				return writeErr(cmd, err)
			}
			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:       strings.TrimSpace(addr),
				APIBaseURL: s.APIBaseURL,
				APIToken:   s.APIToken,
				Theme:      s.Theme,
				Logger:     slog.Default(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := srv.Addr()
			if listenAddr == "" {
				return writeErr(cmd, errors.New("webtui: missing --addr"))
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      listenAddr,
					"api":       s.APIBaseURL,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{
					"open http://" + listenAddr,
				},
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "etapas webtui running at http://%s (api=%s)\n", listenAddr, s.APIBaseURL)
			if err := serveUntilSignal(cmd.Context(), &http.Server{Addr: listenAddr, Handler: srv.Handler()}); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3334", "Bind address (host:port or :port)")
	return cmd
}
