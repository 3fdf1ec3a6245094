package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"etapas-cli/internal/model"
)

type etapaItem struct {
	etapa model.Etapa
}

func (i etapaItem) FilterValue() string { return i.etapa.Nome + " " + i.etapa.Codigo }
func (i etapaItem) Title() string       { return i.etapa.Nome }

func etapaItems(records []model.Etapa) []list.Item {
	out := make([]list.Item, 0, len(records))
	for _, r := range records {
		out = append(out, etapaItem{etapa: r})
	}
	return out
}

// etapaDelegate renders one stage per row: position, name, code, status.
type etapaDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
}

func newEtapaDelegate() etapaDelegate {
	return etapaDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
	}
}

func (d etapaDelegate) Height() int  { return 1 }
func (d etapaDelegate) Spacing() int { return 0 }
func (d etapaDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d etapaDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	it, ok := item.(etapaItem)
	if !ok || contentW < 4 {
		fmt.Fprint(w, "")
		return
	}

	style := d.normal
	if index == m.Index() {
		style = d.selected
	}

	e := it.etapa
	status := lipgloss.NewStyle().Foreground(statusColor(string(e.Status))).Render(e.Status.Label())
	pos := fmt.Sprintf("%4s", strconv.Itoa(e.Posicao))
	code := fmt.Sprintf("%-10s", e.Codigo)
	line := strings.Join([]string{pos, code, e.Nome}, "  ")

	lineW := xansi.StringWidth(line)
	statusW := xansi.StringWidth(status)
	room := contentW - statusW - 2
	if room < 1 {
		line = fitLine(line, contentW)
		fmt.Fprint(w, style.Render(line))
		return
	}
	if lineW > room {
		line = fitLine(line, room)
	} else {
		line += strings.Repeat(" ", room-lineW)
	}
	fmt.Fprint(w, style.Render(line+"  ")+status)
}
