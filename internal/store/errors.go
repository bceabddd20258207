package store

import (
	"errors"
	"fmt"
)

// CorruptError means the document exists but is not a valid annotation
// document. Access stops here; the caller decides on any fallback.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("annotation store %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// PersistError means writing the document failed and the change was not saved.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save annotation store %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func IsCorrupt(err error) bool {
	var e *CorruptError
	return errors.As(err, &e)
}

func IsPersist(err error) bool {
	var e *PersistError
	return errors.As(err, &e)
}
