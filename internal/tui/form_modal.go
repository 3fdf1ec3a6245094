package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"etapas-cli/internal/model"
	"etapas-cli/internal/validate"
)

var formLabels = map[formFocus]string{
	formFocusNome:    "Nome",
	formFocusCodigo:  "Código",
	formFocusPosicao: "Posição",
	formFocusStatus:  "Status",
}

var formFields = map[formFocus]string{
	formFocusNome:    validate.FieldNome,
	formFocusCodigo:  validate.FieldCodigo,
	formFocusPosicao: validate.FieldPosicao,
	formFocusStatus:  validate.FieldStatus,
}

func (m appModel) viewForm() string {
	st := m.ctrl.Modal()
	errs := m.ctrl.Errors()
	bodyW := modalBodyWidth(m.width)

	label := lipgloss.NewStyle().Bold(true)
	inputBox := lipgloss.NewStyle().Width(bodyW).Background(colorInputBg)
	focusedBox := inputBox.BorderLeft(true).BorderStyle(lipgloss.ThickBorder()).BorderForeground(colorAccent)

	var rows []string
	for f := formFocusNome; f <= formFocusStatus; f++ {
		rows = append(rows, label.Render(formLabels[f]))
		var field string
		if f == formFocusStatus {
			field = m.renderStatusPicker()
		} else {
			field = m.inputs[f].View()
		}
		if f == m.formFocus {
			rows = append(rows, focusedBox.Width(bodyW-1).Render(field))
		} else {
			rows = append(rows, inputBox.Render(field))
		}
		if msg, ok := errs[formFields[f]]; ok {
			rows = append(rows, styleError().Render(msg))
		}
		rows = append(rows, "")
	}

	btnBase, btnActive := buttonStyles()
	submitLabel := st.SubmitLabel()
	if m.ctrl.Pending() {
		submitLabel = "Salvando…"
	}
	submit := btnBase.Render(submitLabel)
	cancel := btnBase.Render("Cancelar")
	if m.formFocus == formFocusSubmit {
		submit = btnActive.Render(submitLabel)
	}
	if m.formFocus == formFocusCancel {
		cancel = btnActive.Render("Cancelar")
	}
	sep := lipgloss.NewStyle().Background(colorControlBg).Render(" ")
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, submit, sep, cancel), "")
	rows = append(rows, styleMuted().Width(bodyW).Render("tab: campo   ←/→: status   ctrl+s: salvar   esc: cancelar"))

	return renderModalBox(m.width, st.Title(), strings.Join(rows, "\n"))
}

func (m appModel) renderStatusPicker() string {
	var parts []string
	for _, s := range model.Statuses() {
		txt := s.Label()
		if string(s) == m.formStatus {
			parts = append(parts, lipgloss.NewStyle().
				Foreground(colorAccentFg).
				Background(colorAccent).
				Padding(0, 1).
				Render(txt))
			continue
		}
		parts = append(parts, styleMuted().Padding(0, 1).Render(txt))
	}
	if _, ok := model.ParseStatus(m.formStatus); !ok && m.formStatus != "" {
		parts = append(parts, styleError().Render("("+m.formStatus+")"))
	}
	return strings.Join(parts, " ")
}
