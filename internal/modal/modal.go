// Package modal tracks which dialog of the stage screen is open.
//
// At most one dialog is visible at a time. State is a closed variant: its
// fields are unexported and only the Orchestrator transitions build one, so
// "editing and confirming a delete at once" cannot be represented.
package modal

import (
	"etapas-cli/internal/model"
)

type Kind int

const (
	Closed Kind = iota
	Editing
	ConfirmingDelete
)

func (k Kind) String() string {
	switch k {
	case Closed:
		return "closed"
	case Editing:
		return "editing"
	case ConfirmingDelete:
		return "confirming-delete"
	default:
		return "unknown"
	}
}

type State struct {
	kind     Kind
	draft    model.Draft
	targetID string
	subject  model.Etapa
}

func (s State) Kind() Kind { return s.kind }

func (s State) IsOpen() bool { return s.kind != Closed }

// Draft is the form content while Editing.
func (s State) Draft() (model.Draft, bool) {
	if s.kind != Editing {
		return model.Draft{}, false
	}
	return s.draft, true
}

// TargetID is the id of the record under edit; absent when creating.
func (s State) TargetID() (string, bool) {
	if s.kind != Editing || s.targetID == "" {
		return "", false
	}
	return s.targetID, true
}

// Subject is the record awaiting delete confirmation.
func (s State) Subject() (model.Etapa, bool) {
	if s.kind != ConfirmingDelete {
		return model.Etapa{}, false
	}
	return s.subject, true
}

// Title is the dialog heading.
func (s State) Title() string {
	switch s.kind {
	case Editing:
		if s.targetID != "" {
			return "Editar Etapa"
		}
		return "Criar Etapa"
	case ConfirmingDelete:
		return "Confirmação de Exclusão"
	default:
		return ""
	}
}

// SubmitLabel is the caption of the form's primary button.
func (s State) SubmitLabel() string {
	if s.kind == Editing && s.targetID != "" {
		return "Atualizar"
	}
	return "Criar"
}

// Orchestrator owns the current State and a session counter. Every open and
// close starts a new session so late network completions can tell they are stale.
type Orchestrator struct {
	state   State
	session uint64
}

func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) Session() uint64 { return o.session }

// OpenCreate starts a new draft with the default status. It does nothing
// unless the orchestrator is Closed, so an unsaved draft is never lost.
func (o *Orchestrator) OpenCreate() bool {
	if o.state.kind != Closed {
		return false
	}
	o.enter(State{kind: Editing, draft: model.NewDraft()})
	return true
}

// OpenEdit starts editing a copy of r.
func (o *Orchestrator) OpenEdit(r model.Etapa) bool {
	if o.state.kind != Closed {
		return false
	}
	o.enter(State{kind: Editing, draft: model.DraftFromEtapa(r), targetID: r.ID})
	return true
}

// OpenDeleteConfirm asks for confirmation before deleting r.
func (o *Orchestrator) OpenDeleteConfirm(r model.Etapa) bool {
	if o.state.kind != Closed {
		return false
	}
	o.enter(State{kind: ConfirmingDelete, subject: r})
	return true
}

// SetDraft replaces the form content while Editing.
func (o *Orchestrator) SetDraft(d model.Draft) bool {
	if o.state.kind != Editing {
		return false
	}
	o.state.draft = d
	return true
}

// Close discards any draft and returns to Closed from any state.
func (o *Orchestrator) Close() {
	if o.state.kind == Closed {
		return
	}
	o.enter(State{kind: Closed})
}

// CloseSession closes only if session is still the current one.
func (o *Orchestrator) CloseSession(session uint64) bool {
	if session != o.session || o.state.kind == Closed {
		return false
	}
	o.Close()
	return true
}

func (o *Orchestrator) enter(s State) {
	o.state = s
	o.session++
}
