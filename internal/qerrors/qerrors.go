// Package qerrors defines the error kinds surfaced at the facade
// boundary. Some of these carry enough context to format a useful CLI
// error line without the caller re-deriving it from the original
// request.
package qerrors

import "fmt"

// AmbiguousHashError is returned when a short hash resolves to more than
// one full hash.
type AmbiguousHashError struct {
	Prefix string
}

func (e *AmbiguousHashError) Error() string {
	return fmt.Sprintf("hash prefix %q is ambiguous", e.Prefix)
}

// FileDoesNotExistError is returned when a hash has no corresponding blob.
type FileDoesNotExistError struct {
	Hash string
}

func (e *FileDoesNotExistError) Error() string {
	return fmt.Sprintf("no file with hash %q", e.Hash)
}

// FileExistsError is returned by the blob store when the destination
// already exists.
type FileExistsError struct {
	Hash string
}

func (e *FileExistsError) Error() string {
	return fmt.Sprintf("file with hash %q already exists", e.Hash)
}

// FieldDoesNotExistError is returned when writing to an undeclared field.
type FieldDoesNotExistError struct {
	Field string
}

func (e *FieldDoesNotExistError) Error() string {
	return fmt.Sprintf("field %q is not declared", e.Field)
}

// FieldReadOnlyError is returned when writing to a read-only field that
// already has a value.
type FieldReadOnlyError struct {
	Field string
}

func (e *FieldReadOnlyError) Error() string {
	return fmt.Sprintf("field %q is read-only", e.Field)
}

// InvalidFieldValueError is returned when a text value fails a field's
// typed parser.
type InvalidFieldValueError struct {
	Field string
	Value string
	Cause error
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf("invalid value %q for field %q: %v", e.Value, e.Field, e.Cause)
}

func (e *InvalidFieldValueError) Unwrap() error { return e.Cause }

// FieldConfigChangedError is returned when a field's declared type differs
// from the type already recorded in the index.
type FieldConfigChangedError struct {
	Field        string
	StoredType   string
	DeclaredType string
}

func (e *FieldConfigChangedError) Error() string {
	return fmt.Sprintf("field %q has stored type %q, declared type is %q", e.Field, e.StoredType, e.DeclaredType)
}

// CheckpointDoesNotExistError is returned when an undo target is missing.
type CheckpointDoesNotExistError struct {
	CheckpointID int64
}

func (e *CheckpointDoesNotExistError) Error() string {
	return fmt.Sprintf("checkpoint %d does not exist", e.CheckpointID)
}

// UndoFailedError is returned when a checkpoint contains a non-invertible
// action.
type UndoFailedError struct {
	Reason string
}

func (e *UndoFailedError) Error() string {
	return fmt.Sprintf("undo failed: %s", e.Reason)
}

// DatabaseReadOnlyError is returned when a mutation is attempted on a
// read-only database.
type DatabaseReadOnlyError struct{}

func (e *DatabaseReadOnlyError) Error() string {
	return "database is open read-only"
}

// ConstrainedError is returned when a config value violates its schema
// declaration. Path is dotted, e.g. "metadata.comments.type".
type ConstrainedError struct {
	Path    string
	Message string
}

func (e *ConstrainedError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}
