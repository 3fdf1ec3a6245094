package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"etapas-cli/internal/modal"
	"etapas-cli/internal/model"
	"etapas-cli/internal/notify"
	"etapas-cli/internal/workflow"
)

type Options struct {
	// Theme is light, dark or auto.
	Theme string
	// Source is shown in the header (usually the API base URL).
	Source string
}

type appModel struct {
	ctx    context.Context
	ctrl   *workflow.Controller
	toasts *notify.Queue
	source string

	width  int
	height int

	list        list.Model
	listVersion uint64
	loading     bool

	modal        modalKind
	modalSession uint64

	inputs       []textinput.Model
	formStatus   string
	formFocus    formFocus
	confirmFocus confirmModalFocus
}

func newAppModel(ctx context.Context, ctrl *workflow.Controller, toasts *notify.Queue, opts Options) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	if toasts == nil {
		toasts = notify.NewQueue(0)
	}

	l := list.New(nil, newEtapaDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()

	inputs := make([]textinput.Model, 3)
	for i, ph := range []string{"Nome da etapa", "Código", "Posição"} {
		in := textinput.New()
		in.Placeholder = ph
		in.Prompt = ""
		in.CharLimit = 120
		inputs[i] = in
	}
	inputs[formFocusPosicao].CharLimit = 12

	return appModel{
		ctx:          ctx,
		ctrl:         ctrl,
		toasts:       toasts,
		source:       opts.Source,
		list:         l,
		loading:      true,
		inputs:       inputs,
		modalSession: ctrl.Session(),
	}
}

func (m appModel) Init() tea.Cmd {
	return m.execute(m.ctrl.PrepareLoad())
}

func (m appModel) execute(op workflow.Op) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{res: op.Execute(ctx)}
	}
}

func (m appModel) toastTick() tea.Cmd {
	return tea.Tick(notify.DefaultDuration, func(_ time.Time) tea.Msg { return toastTickMsg{} })
}

func (m appModel) selected() (model.Etapa, bool) {
	it, ok := m.list.SelectedItem().(etapaItem)
	if !ok {
		return model.Etapa{}, false
	}
	return it.etapa, true
}

// syncFromController mirrors controller state into view state: list items when
// the store changed, dialog widgets when a new modal session started.
func (m *appModel) syncFromController() {
	if v := m.ctrl.StoreVersion(); v != m.listVersion {
		m.listVersion = v
		m.list.SetItems(etapaItems(m.ctrl.Records()))
	}

	session := m.ctrl.Session()
	if session == m.modalSession {
		return
	}
	m.modalSession = session
	st := m.ctrl.Modal()
	switch st.Kind() {
	case modal.Editing:
		d, _ := st.Draft()
		m.loadForm(d)
		m.modal = modalForm
	case modal.ConfirmingDelete:
		m.confirmFocus = confirmFocusConfirm
		m.modal = modalConfirmDelete
	default:
		m.closeAllModals()
	}
}

func (m *appModel) loadForm(d model.Draft) {
	m.inputs[formFocusNome].SetValue(d.Nome)
	m.inputs[formFocusCodigo].SetValue(d.Codigo)
	m.inputs[formFocusPosicao].SetValue(d.Posicao)
	m.formStatus = d.Status
	m.setFormFocus(formFocusNome)
}

func (m appModel) formDraft() model.Draft {
	return model.Draft{
		Nome:    m.inputs[formFocusNome].Value(),
		Codigo:  m.inputs[formFocusCodigo].Value(),
		Posicao: m.inputs[formFocusPosicao].Value(),
		Status:  m.formStatus,
	}
}

func (m *appModel) setFormFocus(f formFocus) {
	m.formFocus = f
	for i := range m.inputs {
		if formFocus(i) == f {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *appModel) cycleStatus(delta int) {
	all := model.Statuses()
	idx := -1
	for i, s := range all {
		if string(s) == m.formStatus {
			idx = i
		}
	}
	if idx < 0 {
		m.formStatus = string(all[0])
		return
	}
	idx = (idx + delta + len(all)) % len(all)
	m.formStatus = string(all[idx])
}

func (m *appModel) closeAllModals() {
	m.modal = modalNone
	m.formFocus = formFocusNome
	m.confirmFocus = confirmFocusConfirm
	m.formStatus = ""
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
}

func (m *appModel) resizeList() {
	// header (2) + footer hints (1) + toast (1) + spacing (1)
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	m.list.SetSize(m.width, h)
	for i := range m.inputs {
		m.inputs[i].Width = modalBodyWidth(m.width) - 2
	}
}
