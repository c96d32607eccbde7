// Package catalogerr defines the error taxonomy shared by every catalog layer.
//
// Errors carry a Code plus the offending entity, field, id or path, so
// callers can report them precisely. Match them with errors.Is against the
// package sentinels, or with Is(err, code):
//
//	if errors.Is(err, catalogerr.ErrNotFound) { ... }
package catalogerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes catalog errors.
type Code string

const (
	// CodeValidation indicates a schema or allowed-values violation.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound indicates the requested id does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists indicates an id or path collision.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeAllocation indicates id allocation kept colliding.
	CodeAllocation Code = "ALLOCATION"

	// CodeConfiguration indicates malformed input to the model factory.
	CodeConfiguration Code = "CONFIGURATION"

	// CodeDuplicateDataset indicates an HDF5 dataset name collision.
	CodeDuplicateDataset Code = "DUPLICATE_DATASET"

	// CodeIOConsistency indicates the database and filesystem diverged
	// during a multi-step operation.
	CodeIOConsistency Code = "IO_CONSISTENCY"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrValidation       = &Error{Code: CodeValidation}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrAlreadyExists    = &Error{Code: CodeAlreadyExists}
	ErrAllocation       = &Error{Code: CodeAllocation}
	ErrConfiguration    = &Error{Code: CodeConfiguration}
	ErrDuplicateDataset = &Error{Code: CodeDuplicateDataset}
	ErrIOConsistency    = &Error{Code: CodeIOConsistency}
)

// Error is a coded catalog error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Entity names the entity type involved ("cwepr", "molecule", ...).
	Entity string

	// Field names the offending field for validation errors.
	Field string

	// ID is the record id involved, 0 when not applicable.
	ID int64

	// Path is the filesystem path or HDF5 object path involved.
	Path string

	// Compensated reports, for IO consistency errors, whether the
	// compensating rollback completed.
	Compensated bool

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)

	var ctx []string
	if e.Entity != "" {
		ctx = append(ctx, "entity="+e.Entity)
	}
	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}
	if e.ID != 0 {
		ctx = append(ctx, fmt.Sprintf("id=%d", e.ID))
	}
	if e.Path != "" {
		ctx = append(ctx, "path="+e.Path)
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// CodeOf returns the code of the first catalog error in the chain, or "".
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Validation creates a validation error for one field.
func Validation(entity, field, format string, args ...any) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf(format, args...),
		Entity:  entity,
		Field:   field,
	}
}

// NotFound creates an error for a missing record.
func NotFound(entity string, id int64) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("no %s with id %d", entity, id),
		Entity:  entity,
		ID:      id,
	}
}

// MissingPath creates a not-found error for a filesystem path.
func MissingPath(path string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: "path does not exist",
		Path:    path,
	}
}

// AlreadyExists creates an error for a colliding path.
func AlreadyExists(path string) *Error {
	return &Error{
		Code:    CodeAlreadyExists,
		Message: "path already exists",
		Path:    path,
	}
}

// Allocation creates an error for exhausted allocation attempts.
func Allocation(entity string, attempts int, err error) *Error {
	return &Error{
		Code:    CodeAllocation,
		Message: fmt.Sprintf("id allocation failed after %d attempt(s)", attempts),
		Entity:  entity,
		Err:     err,
	}
}

// Configuration creates an error for malformed factory input.
func Configuration(entity, format string, args ...any) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Message: fmt.Sprintf(format, args...),
		Entity:  entity,
	}
}

// DuplicateDataset creates an error for an existing HDF5 dataset.
func DuplicateDataset(file, object string) *Error {
	return &Error{
		Code:    CodeDuplicateDataset,
		Message: fmt.Sprintf("dataset %q already exists", object),
		Path:    file,
	}
}

// IOConsistency creates an error for a partially failed multi-step operation.
func IOConsistency(entity string, id int64, compensated bool, err error) *Error {
	msg := "database and archive diverged; rollback completed"
	if !compensated {
		msg = "database and archive diverged; rollback incomplete"
	}
	return &Error{
		Code:        CodeIOConsistency,
		Message:     msg,
		Entity:      entity,
		ID:          id,
		Compensated: compensated,
		Err:         err,
	}
}
