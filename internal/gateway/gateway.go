// Package gateway talks to the remote stage API.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"etapas-cli/internal/model"
)

// Gateway is the remote persistence service for stages.
type Gateway interface {
	List(ctx context.Context) ([]model.Etapa, error)
	Create(ctx context.Context, p model.Payload) (model.Etapa, error)
	Update(ctx context.Context, id string, p model.Payload) (model.Etapa, error)
	Delete(ctx context.Context, id string) error
}

const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Error is returned by Client for transport and HTTP failures. Description is
// meant for humans (it ends up in notifications).
type Error struct {
	Op          string
	StatusCode  int
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("etapas %s: status %d: %s", e.Op, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("etapas %s: %s", e.Op, e.Description)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNotFound matches (errors.Is) an Error carrying a 404.
var ErrNotFound = errors.New("etapa not found")

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// Describe returns the human-readable part of err.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Description != "" {
		return gerr.Description
	}
	return err.Error()
}
