package cli

import (
	"errors"
	"fmt"

	"etapas-cli/internal/gateway"
	"etapas-cli/internal/validate"
	"etapas-cli/internal/workflow"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// describeErr turns controller and gateway errors into one stderr line.
func describeErr(err error) string {
	var invalid validate.Result
	if errors.As(err, &invalid) {
		return invalid.Error()
	}
	var mut *workflow.MutationFailedError
	if errors.As(err, &mut) {
		return fmt.Sprintf("%s failed: %s", mut.Op, mut.Description())
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return fmt.Sprintf("%s failed: %s", gwErr.Op, gateway.Describe(err))
	}
	return err.Error()
}
