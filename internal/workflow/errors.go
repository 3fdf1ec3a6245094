package workflow

import (
	"errors"
	"fmt"

	"etapas-cli/internal/gateway"
)

var (
	// ErrBusy is returned while an operation for the current dialog is still in flight.
	ErrBusy = errors.New("an operation is already in progress")
	// ErrNoDialog is returned when an intent needs a dialog that is not open.
	ErrNoDialog = errors.New("no matching dialog is open")
)

// MutationFailedError reports a create, update or delete rejected by the gateway.
type MutationFailedError struct {
	Op  string
	Err error
}

func (e *MutationFailedError) Error() string {
	return fmt.Sprintf("%s etapa: %v", e.Op, e.Err)
}

func (e *MutationFailedError) Unwrap() error { return e.Err }

func (e *MutationFailedError) Description() string {
	return gateway.Describe(e.Err)
}
