package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrCountMismatch indicates the name and size lists have different
	// lengths. Raised at the caller boundary before any I/O.
	ErrCountMismatch = errors.New("map and size counts differ")

	// ErrNoSegments indicates an empty batch.
	ErrNoSegments = errors.New("at least one segment is required")

	// ErrDuplicateName indicates two segments in one batch share a name.
	ErrDuplicateName = errors.New("duplicate segment name")

	// ErrInvalidName indicates a name unusable as a filesystem entry.
	ErrInvalidName = errors.New("invalid segment name")

	// ErrInvalidSize indicates a segment size of zero bytes.
	ErrInvalidSize = errors.New("segment size must be positive")
)

// CreateError reports a failed backing file creation, naming the segment
// and wrapping the underlying cause. It is batch-fatal: the manager rolls
// back everything already created before surfacing it.
type CreateError struct {
	Name string
	Err  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create segment %q: %v", e.Name, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// MapError reports a failed memory mapping over an already-created backing
// file. Like CreateError it is batch-fatal.
type MapError struct {
	Name string
	Err  error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("map segment %q: %v", e.Name, e.Err)
}

func (e *MapError) Unwrap() error {
	return e.Err
}
