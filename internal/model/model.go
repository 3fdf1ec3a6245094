package model

import (
	"strconv"
	"strings"
)

type Status string

const (
	StatusAtivo     Status = "ativo"
	StatusInativo   Status = "inativo"
	StatusArquivado Status = "arquivado"
)

// DefaultStatus is the status a brand new draft starts with.
const DefaultStatus = StatusAtivo

// Statuses returns every valid status in display order.
func Statuses() []Status {
	return []Status{StatusAtivo, StatusInativo, StatusArquivado}
}

func (s Status) Valid() bool {
	switch s {
	case StatusAtivo, StatusInativo, StatusArquivado:
		return true
	default:
		return false
	}
}

func (s Status) Label() string {
	switch s {
	case StatusAtivo:
		return "Ativo"
	case StatusInativo:
		return "Inativo"
	case StatusArquivado:
		return "Arquivado"
	default:
		return string(s)
	}
}

// ParseStatus accepts the enum value case-insensitively.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", false
	}
	return st, true
}

// Etapa is a stage as stored by the remote API.
type Etapa struct {
	ID      string `json:"_id"`
	Nome    string `json:"nome"`
	Codigo  string `json:"codigo"`
	Posicao int    `json:"posicao"`
	Status  Status `json:"status"`
}

// Payload is the body sent on create and update.
type Payload struct {
	Nome    string `json:"nome" jsonschema:"minLength=1"`
	Codigo  string `json:"codigo" jsonschema:"minLength=1"`
	Posicao int    `json:"posicao" jsonschema:"minimum=1"`
	Status  Status `json:"status" jsonschema:"enum=ativo,enum=inativo,enum=arquivado"`
}

// Draft is a stage being composed in the form. Posicao holds the raw text
// typed by the user and is only parsed on submit.
type Draft struct {
	Nome    string `json:"nome"`
	Codigo  string `json:"codigo"`
	Posicao string `json:"posicao"`
	Status  string `json:"status"`
}

func NewDraft() Draft {
	return Draft{Status: string(DefaultStatus)}
}

func DraftFromEtapa(e Etapa) Draft {
	return Draft{
		Nome:    e.Nome,
		Codigo:  e.Codigo,
		Posicao: strconv.Itoa(e.Posicao),
		Status:  string(e.Status),
	}
}

// Apply returns e with the payload fields written over it.
func (p Payload) Apply(e Etapa) Etapa {
	e.Nome = p.Nome
	e.Codigo = p.Codigo
	e.Posicao = p.Posicao
	e.Status = p.Status
	return e
}
