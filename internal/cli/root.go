package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"etapas-cli/internal/config"
	"etapas-cli/internal/format"
	"etapas-cli/internal/gateway"
	"etapas-cli/internal/logging"
	"etapas-cli/internal/notify"
	"etapas-cli/internal/tui"
	"etapas-cli/internal/workflow"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
)

type App struct {
	APIBaseURL string
	APIToken   string
	Timeout    string
	LogLevel   string
	PrettyJSON bool
	Format     string

	settings    *config.Settings
	settingsErr error
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "etapas",
		Short:         "Administer stages (etapas) from the terminal, the browser or scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  etapas

  # Scriptable commands
  etapas list --format table
  etapas create --nome Triagem --codigo TRI --posicao 1

  # Local API for trying things out
  etapas serve-dev --db ./etapas.sqlite
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := app.LogLevel
		if s, err := app.Settings(); err == nil {
			level = s.LogLevel
		}
		if err := logging.ConfigureWriter(level, cmd.ErrOrStderr()); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIBaseURL, "api", "", "API base URL (default "+config.DefaultAPIBaseURL+"; env "+config.EnvAPIURL+")")
	cmd.PersistentFlags().StringVar(&app.APIToken, "token", "", "Bearer token for the API (env "+config.EnvAPIToken+")")
	cmd.PersistentFlags().StringVar(&app.Timeout, "timeout", "", "HTTP timeout, e.g. 5s (env "+config.EnvTimeout+")")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "debug|info|warn|error (env "+config.EnvLogLevel+")")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", format.JSON, "Output format ("+strings.Join(format.Formats(), "|")+")")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newCreateCmd(app))
	cmd.AddCommand(newUpdateCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newWebTUICmd(app))
	cmd.AddCommand(newServeDevCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newSchemaCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// Settings loads the config file once and layers env and flags over it.
func (app *App) Settings() (config.Settings, error) {
	if app.settings == nil && app.settingsErr == nil {
		cfg, err := config.Load()
		if err != nil {
			app.settingsErr = err
		} else {
			s, err := config.Resolve(cfg, config.Overrides{
				APIBaseURL: app.APIBaseURL,
				APIToken:   app.APIToken,
				Timeout:    app.Timeout,
				LogLevel:   app.LogLevel,
			})
			if err != nil {
				app.settingsErr = err
			} else {
				app.settings = &s
			}
		}
	}
	if app.settingsErr != nil {
		return config.Settings{}, app.settingsErr
	}
	return *app.settings, nil
}

func newGateway(s config.Settings) (*gateway.Client, error) {
	opts := []gateway.ClientOption{gateway.WithTimeout(s.Timeout)}
	if s.APIToken != "" {
		opts = append(opts, gateway.WithBearerToken(s.APIToken))
	}
	if s.ListRetry > 0 {
		maxElapsed := s.ListRetry
		opts = append(opts, gateway.WithListBackoff(func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(100*time.Millisecond),
				backoff.WithMaxInterval(time.Second),
				backoff.WithMaxElapsedTime(maxElapsed),
			)
		}))
	} else {
		opts = append(opts, gateway.WithListBackoff(nil))
	}
	return gateway.NewClient(s.APIBaseURL, opts...)
}

// newController wires a controller for one-shot commands: notifications
// only go to the log, the command itself reports the outcome.
func newController(app *App) (*workflow.Controller, error) {
	s, err := app.Settings()
	if err != nil {
		return nil, err
	}
	gw, err := newGateway(s)
	if err != nil {
		return nil, err
	}
	return workflow.New(gw,
		workflow.WithNotifier(notify.LogNotifier{Logger: slog.Default()}),
		workflow.WithLogger(slog.Default()),
	), nil
}

func runTUI(cmd *cobra.Command, app *App) error {
	s, err := app.Settings()
	if err != nil {
		return writeErr(cmd, err)
	}
	// The alt-screen owns the terminal; logs go to a file or nowhere.
	closeLog, err := logging.ConfigureFile(s.LogLevel, s.LogFile)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() { _ = closeLog() }()

	gw, err := newGateway(s)
	if err != nil {
		return writeErr(cmd, err)
	}
	toasts := notify.NewQueue(8)
	ctrl := workflow.New(gw,
		workflow.WithNotifier(notify.Multi{toasts, notify.LogNotifier{Logger: slog.Default()}}),
		workflow.WithLogger(slog.Default()),
	)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return tui.Run(ctx, ctrl, toasts, tui.Options{Theme: s.Theme, Source: gw.BaseURL()})
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// reportedError marks an error already printed by writeErr.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func writeErr(cmd *cobra.Command, err error) error {
	if err == nil || Reported(err) {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), describeErr(err))
	return reportedError{err: err}
}

// Reported tells main whether err was already printed.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
