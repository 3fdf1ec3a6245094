// Package tui is the terminal presentation of the stage screen.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"etapas-cli/internal/notify"
	"etapas-cli/internal/workflow"
)

// Run blocks until the user quits. toasts must also be registered as a
// notifier on ctrl so controller notifications reach the screen.
func Run(ctx context.Context, ctrl *workflow.Controller, toasts *notify.Queue, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference(opts.Theme)

	m := newAppModel(ctx, ctrl, toasts, opts)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
