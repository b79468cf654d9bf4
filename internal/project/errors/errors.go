// Package errors defines the error values shared by the document editor,
// the file store and the virtual file system.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Standard errors returned by the project packages.
var (
	// ErrNotFound indicates a file or directory was not found.
	ErrNotFound = errors.New("not found")

	// ErrIsDirectory indicates the path is a directory, not a file.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrAlreadyOpen indicates the path is already registered with a store.
	ErrAlreadyOpen = errors.New("already open")

	// ErrDocumentNotOpen indicates the document is not registered with a store.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrNoDocument indicates a commit or diff was requested for a file
	// handle that carries no document.
	ErrNoDocument = errors.New("file handle carries no document")

	// ErrNotObject indicates a JSON value whose root is not an object.
	ErrNotObject = errors.New("json root is not an object")
)

// PathError represents an error associated with a file path.
type PathError struct {
	Op   string // Operation that failed (load, commit, diff, etc.)
	Path string // File path
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathError creates a new PathError.
func NewPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}

// IsNotFound returns true if the error indicates a file was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
