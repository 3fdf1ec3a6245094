package cli

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"etapas-cli/internal/devserver"

	"github.com/spf13/cobra"
)

func newServeDevCmd(app *App) *cobra.Command {
	var addr string
	var dbPath string
	var prefix string

	cmd := &cobra.Command{
		Use:   "serve-dev",
		Short: "Run a local stage API backed by sqlite",
		Long: strings.TrimSpace(`
Run a reference implementation of the /etapas API so the screens can be
tried without the real backend. Use --db :memory: for a throwaway store.
`),
		Example: strings.TrimSpace(`
etapas serve-dev --addr 127.0.0.1:3000 --db ./etapas.sqlite
etapas --api http://127.0.0.1:3000/api list
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(addr) == "" {
				return writeErr(cmd, errors.New("serve-dev: missing --addr"))
			}
			ctx := cmd.Context()
			store, err := devserver.Open(ctx, dbPath)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer store.Close()

			api := devserver.NewServer(store, prefix)
			hs := &http.Server{Addr: addr, Handler: api.Handler()}

			base := "http://" + addr + "/" + strings.Trim(prefix, "/")
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      addr,
					"db":        dbPath,
					"baseURL":   strings.TrimSuffix(base, "/"),
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "etapas dev API listening on %s\n", strings.TrimSuffix(base, "/"))

			if err := serveUntilSignal(ctx, hs); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3000", "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&dbPath, "db", "etapas.sqlite", "sqlite database file (:memory: for a throwaway store)")
	cmd.Flags().StringVar(&prefix, "prefix", "/api", "Path prefix for the API")
	return cmd
}
