package editor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLoadFailed         = errors.New("load assignment failed")
	ErrUnknownBucket      = errors.New("unknown bucket")
	ErrDuplicateInstance  = errors.New("instance id already in use")
	ErrUnknownSource      = errors.New("unknown drag source")
	ErrBusy               = errors.New("parameter capture in progress")
	ErrNotDragging        = errors.New("no drag in progress")
	ErrNoPendingPlacement = errors.New("no pending placement")
	ErrUnknownField       = errors.New("unknown input field")
	ErrNotParameterized   = errors.New("instance does not take parameters")
	ErrNoSubmitter        = errors.New("no submitter configured")
)

// IncompleteParametersError blocks Save until every input field has a value.
type IncompleteParametersError struct {
	Missing []string
}

func (e *IncompleteParametersError) Error() string {
	return fmt.Sprintf("missing required parameters: %s", strings.Join(e.Missing, ", "))
}

// CatalogError reports an invalid template definition.
type CatalogError struct {
	TemplateID string
	Reason     string
}

func (e CatalogError) Error() string {
	if e.TemplateID == "" {
		return "catalog: " + e.Reason
	}
	return fmt.Sprintf("catalog: template %s: %s", e.TemplateID, e.Reason)
}
