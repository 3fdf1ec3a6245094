package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"etapas-cli/internal/gateway"
	"etapas-cli/internal/workflow"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeList()
		return m, nil

	case opDoneMsg:
		if msg.res.Op.Kind == gateway.OpList {
			m.loading = false
		}
		_ = m.ctrl.Apply(msg.res)
		m.syncFromController()
		return m, m.toastTick()

	case toastTickMsg:
		// Re-render so expired toasts disappear.
		return m, nil

	case tea.KeyMsg:
		switch m.modal {
		case modalForm:
			return m.updateForm(msg)
		case modalConfirmDelete:
			return m.updateConfirmDelete(msg)
		case modalHelp:
			return m.updateHelp(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n":
		if m.ctrl.OpenCreate() {
			m.syncFromController()
			return m, textinput.Blink
		}
		return m, nil
	case "e", "enter":
		if r, ok := m.selected(); ok && m.ctrl.OpenEdit(r) {
			m.syncFromController()
			return m, textinput.Blink
		}
		return m, nil
	case "d", "x":
		if r, ok := m.selected(); ok && m.ctrl.OpenDeleteConfirm(r) {
			m.syncFromController()
		}
		return m, nil
	case "r":
		m.loading = true
		return m, m.execute(m.ctrl.PrepareLoad())
	case "?":
		m.modal = modalHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+g":
		m.ctrl.Cancel()
		m.syncFromController()
		return m, nil
	case "ctrl+s":
		return m.submit()
	case "tab", "down":
		m.setFormFocus((m.formFocus + 1) % formFocusCount)
		return m, nil
	case "shift+tab", "up":
		m.setFormFocus((m.formFocus + formFocusCount - 1) % formFocusCount)
		return m, nil
	case "enter":
		switch m.formFocus {
		case formFocusSubmit:
			return m.submit()
		case formFocusCancel:
			m.ctrl.Cancel()
			m.syncFromController()
			return m, nil
		default:
			m.setFormFocus(m.formFocus + 1)
			return m, nil
		}
	}

	if m.formFocus == formFocusStatus {
		switch msg.String() {
		case "left", "h":
			m.cycleStatus(-1)
		case "right", "l", " ":
			m.cycleStatus(1)
		}
		m.ctrl.UpdateDraft(m.formDraft())
		return m, nil
	}

	if m.formFocus.isInput() {
		var cmd tea.Cmd
		m.inputs[m.formFocus], cmd = m.inputs[m.formFocus].Update(msg)
		m.ctrl.UpdateDraft(m.formDraft())
		return m, cmd
	}
	return m, nil
}

func (m appModel) submit() (tea.Model, tea.Cmd) {
	op, err := m.ctrl.PrepareSubmit(m.formDraft())
	if err != nil {
		// Field errors are read back from the controller in View. A busy
		// controller means the previous submit has not returned yet.
		if errors.Is(err, workflow.ErrBusy) || errors.Is(err, workflow.ErrNoDialog) {
			return m, nil
		}
		m.focusFirstError()
		return m, nil
	}
	return m, m.execute(op)
}

func (m *appModel) focusFirstError() {
	errs := m.ctrl.Errors()
	for _, f := range []struct {
		field string
		focus formFocus
	}{
		{"nome", formFocusNome},
		{"codigo", formFocusCodigo},
		{"posicao", formFocusPosicao},
		{"status", formFocusStatus},
	} {
		if _, ok := errs[f.field]; ok {
			m.setFormFocus(f.focus)
			return
		}
	}
}

func (m appModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+g":
		m.ctrl.Cancel()
		m.syncFromController()
		return m, nil
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirmFocus = m.confirmFocus.next()
		return m, nil
	case "enter":
		if m.confirmFocus == confirmFocusCancel {
			m.ctrl.Cancel()
			m.syncFromController()
			return m, nil
		}
		op, err := m.ctrl.PrepareConfirmDelete()
		if err != nil {
			return m, nil
		}
		return m, m.execute(op)
	}
	return m, nil
}

func (m appModel) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+g", "q", "?", "enter":
		m.modal = modalNone
	}
	return m, nil
}
