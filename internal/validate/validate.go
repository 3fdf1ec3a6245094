// Package validate checks stage drafts before they are sent to the API.
//
// Everything here is pure: no I/O, no shared state. It is safe to call on
// every keystroke.
package validate

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"etapas-cli/internal/model"
)

const (
	FieldNome    = "nome"
	FieldCodigo  = "codigo"
	FieldPosicao = "posicao"
	FieldStatus  = "status"
)

const (
	MsgNomeRequired      = "Nome é obrigatório"
	MsgCodigoRequired    = "Código é obrigatório"
	MsgPosicaoRequired   = "Posição é obrigatória"
	MsgPosicaoNotNumber  = "Posição deve ser um número"
	MsgPosicaoNotInteger = "Posição deve ser um número inteiro"
	MsgPosicaoPositive   = "Posição deve ser positiva"
	MsgPosicaoTooLarge   = "Posição deve ser no máximo 2147483647"
	MsgStatusRequired    = "Status é obrigatório"
	MsgStatusInvalid     = "Status inválido"
)

// MaxPosicao is the largest accepted position.
const MaxPosicao = math.MaxInt32

// Fields returns the form fields in display order.
func Fields() []string {
	return []string{FieldNome, FieldCodigo, FieldPosicao, FieldStatus}
}

// Result maps a field name to its error message. An empty result is valid.
type Result map[string]string

func (r Result) Valid() bool { return len(r) == 0 }

// Error implements error so an invalid result can travel as one.
func (r Result) Error() string {
	if len(r) == 0 {
		return "valid"
	}
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return fieldOrder(keys[i]) < fieldOrder(keys[j]) })
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+r[k])
	}
	return "invalid etapa: " + strings.Join(parts, "; ")
}

func fieldOrder(f string) int {
	for i, x := range Fields() {
		if x == f {
			return i
		}
	}
	return len(Fields())
}

// Draft validates every field independently and collects all failures.
func Draft(d model.Draft) Result {
	res := Result{}
	if strings.TrimSpace(d.Nome) == "" {
		res[FieldNome] = MsgNomeRequired
	}
	if strings.TrimSpace(d.Codigo) == "" {
		res[FieldCodigo] = MsgCodigoRequired
	}
	if _, msg := parsePosicao(d.Posicao); msg != "" {
		res[FieldPosicao] = msg
	}
	if msg := checkStatus(d.Status); msg != "" {
		res[FieldStatus] = msg
	}
	return res
}

// Payload validates d and, when valid, coerces it into the API payload.
// Nome and Codigo are sent as typed; surrounding spaces only matter for the
// emptiness check.
func Payload(d model.Draft) (model.Payload, Result) {
	res := Draft(d)
	if !res.Valid() {
		return model.Payload{}, res
	}
	pos, _ := parsePosicao(d.Posicao)
	st, _ := model.ParseStatus(d.Status)
	return model.Payload{
		Nome:    d.Nome,
		Codigo:  d.Codigo,
		Posicao: pos,
		Status:  st,
	}, res
}

// Etapa checks a stored record against the same rules (used by the reference server).
func Etapa(p model.Payload) Result {
	return Draft(model.Draft{
		Nome:    p.Nome,
		Codigo:  p.Codigo,
		Posicao: strconv.Itoa(p.Posicao),
		Status:  string(p.Status),
	})
}

func parsePosicao(raw string) (int, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, MsgPosicaoRequired
	}
	n, err := strconv.Atoi(s)
	if err == nil {
		if n <= 0 {
			return 0, MsgPosicaoPositive
		}
		if n > MaxPosicao {
			return 0, MsgPosicaoTooLarge
		}
		return n, ""
	}
	// Not a plain integer: tell "2.5" apart from "abc".
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, MsgPosicaoNotNumber
	}
	if f <= 0 {
		return 0, MsgPosicaoPositive
	}
	if f != math.Trunc(f) {
		return 0, MsgPosicaoNotInteger
	}
	if f > MaxPosicao {
		return 0, MsgPosicaoTooLarge
	}
	return int(f), ""
}

func checkStatus(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return MsgStatusRequired
	}
	if _, ok := model.ParseStatus(raw); !ok {
		return MsgStatusInvalid
	}
	return ""
}
