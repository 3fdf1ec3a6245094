package tui

import (
	"etapas-cli/internal/workflow"
)

type modalKind int

const (
	modalNone modalKind = iota
	modalForm
	modalConfirmDelete
	modalHelp
)

func (k modalKind) String() string {
	switch k {
	case modalNone:
		return "none"
	case modalForm:
		return "form"
	case modalConfirmDelete:
		return "confirm-delete"
	case modalHelp:
		return "help"
	default:
		return "unknown"
	}
}

type formFocus int

const (
	formFocusNome formFocus = iota
	formFocusCodigo
	formFocusPosicao
	formFocusStatus
	formFocusSubmit
	formFocusCancel
	formFocusCount
)

func (f formFocus) isInput() bool {
	return f == formFocusNome || f == formFocusCodigo || f == formFocusPosicao
}

// opDoneMsg carries a finished network call back onto the event loop.
type opDoneMsg struct {
	res workflow.Result
}

type toastTickMsg struct{}
