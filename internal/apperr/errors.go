// Package apperr defines the sentinel errors shared by the storage, index, service
// and tree layers. Callers wrap them with context and test with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound: no source file, category, node or label with the requested key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the source file changed since the checksum the caller holds.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists: a label is already attached for the node.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalid: malformed input such as an unparsable source or an unsafe path.
	ErrInvalid = errors.New("invalid")
)
