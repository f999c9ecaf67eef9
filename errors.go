package docstore

import (
	"errors"
	"fmt"
)

// Driver errors
var (
	ErrNotExist     = errors.New("file does not exist")
	ErrPermission   = errors.New("permission denied")
	ErrNotDir       = errors.New("not a directory")
	ErrIsDir        = errors.New("is a directory")
	ErrNotSupported = errors.New("operation not supported")

	// ErrQuotaExceeded is returned by drivers with a size limit.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store errors
var (
	// ErrCreateDir is returned when the intermediate directories of a
	// resolved path could not be created.
	ErrCreateDir = errors.New("cannot create intermediate directories")

	// ErrEncode is returned when a value cannot be turned into bytes.
	ErrEncode = errors.New("cannot encode value")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsPermission reports whether an error indicates that permission is denied
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}
