package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"etapas-cli/internal/docs"
	"etapas-cli/internal/notify"
)

const (
	pageTitle   = "Gerenciamento de Etapas"
	createLabel = "Criar Nova Etapa"
)

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Carregando…"
	}

	base := m.viewList()
	var fg string
	switch m.modal {
	case modalForm:
		fg = m.viewForm()
	case modalConfirmDelete:
		fg = m.viewConfirmDelete()
	case modalHelp:
		fg = m.viewHelp()
	default:
		return base
	}
	return overlayCenter(base, fg, m.width, m.height)
}

func (m appModel) viewList() string {
	title := lipgloss.NewStyle().Bold(true).Render(pageTitle)
	if m.source != "" {
		title += "  " + styleMuted().Render(m.source)
	}
	header := title + "\n" + styleMuted().Render(strings.Repeat("─", max(m.width, 1)))

	var body string
	switch {
	case len(m.list.Items()) > 0:
		body = m.list.View()
	case m.loading:
		body = styleMuted().Render("Carregando etapas…")
	default:
		body = styleMuted().Render("Nenhuma etapa cadastrada. Pressione n para criar.")
	}

	hints := styleMuted().Render("n: " + createLabel + "   e: editar   d: excluir   r: recarregar   ?: ajuda   q: sair")
	parts := []string{header, normalizePane(body, m.width, m.height-5), "", m.viewToast(), hints}
	return normalizePane(strings.Join(parts, "\n"), m.width, m.height)
}

func (m appModel) viewToast() string {
	active := m.toasts.Active()
	if len(active) == 0 {
		return ""
	}
	n := active[len(active)-1]
	return renderToast(n, m.width)
}

func renderToast(n notify.Notification, width int) string {
	text := n.Title
	if n.Description != "" {
		text += " " + n.Description
	}
	st := lipgloss.NewStyle().Foreground(colorSuccessFg).Bold(true)
	icon := "✓ "
	if n.Kind == notify.KindError {
		st = lipgloss.NewStyle().Foreground(colorErrorFg).Bold(true)
		icon = "✗ "
	}
	return st.Render(fitLine(icon+text, width))
}

func (m appModel) viewConfirmDelete() string {
	body := "Item não encontrado."
	if subj, ok := m.ctrl.Modal().Subject(); ok {
		body = "Você tem certeza que deseja excluir o seguinte item?\n\n" +
			lipgloss.NewStyle().Bold(true).Render("Nome: ") + subj.Nome
	}
	confirm := "Excluir"
	if m.ctrl.Pending() {
		confirm = "Excluindo…"
	}
	return renderConfirmModal(m.width, m.ctrl.Modal().Title(), body, confirm, "Cancelar", m.confirmFocus)
}

func (m appModel) viewHelp() string {
	md, _ := docs.Get("tui")
	bodyW := modalBodyWidth(m.width)
	content := renderMarkdown(md, bodyW)
	maxLines := m.height - 6
	if lines := strings.Split(content, "\n"); maxLines > 0 && len(lines) > maxLines {
		content = strings.Join(lines[:maxLines], "\n")
	}
	return renderModalBox(m.width, "Ajuda", content+"\n\n"+styleMuted().Render("esc: fechar"))
}
