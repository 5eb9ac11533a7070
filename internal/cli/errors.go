package cli

import (
	"errors"
	"fmt"

	"ruleboard/internal/editor"
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

// dropRejectedError is returned when a scripted gesture resolves to no valid bucket
// (unknown or collapsed target). The workspace is left unchanged.
type dropRejectedError struct {
	source string
	target editor.DropTarget
}

func (e dropRejectedError) Error() string {
	where := e.target.Bucket
	if where == "" {
		where = "over " + e.target.OverInstanceID
	}
	return fmt.Sprintf("drop rejected: %s -> %s (unknown or collapsed target)", e.source, where)
}

// hintFor adds a next step to errors the user can act on.
func hintFor(err error) error {
	var incomplete *editor.IncompleteParametersError
	switch {
	case errors.As(err, &incomplete):
		return fmt.Errorf("%w (pass --param <field>=<value> for each)", err)
	case errors.Is(err, editor.ErrLoadFailed):
		return fmt.Errorf("%w\nhint: run `ruleboard init --demo` or `ruleboard init --force --from assignment.yaml`", err)
	default:
		return err
	}
}
