// Package segment creates, maps and removes tmpfs-backed shared memory
// segments.
//
// Each segment is a plain file on an in-memory filesystem whose full length
// is mapped into the bridge process. Holding the mapping keeps the backing
// store alive while guest and host processes attach to the same name; the
// package never reads or writes the mapped bytes itself.
package segment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/marmos91/shmbridge/internal/bytesize"
)

// State tracks a segment through its lifecycle.
type State int

const (
	// StateUnmapped is the initial state before any I/O.
	StateUnmapped State = iota
	// StateCreated means the backing file exists with its exact length set,
	// but no mapping has been established yet.
	StateCreated
	// StateMapped means the full file length is mapped into this process.
	StateMapped
	// StateRemoved is terminal: mapping released, backing file deleted.
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateUnmapped:
		return "unmapped"
	case StateCreated:
		return "created"
	case StateMapped:
		return "mapped"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Spec is a requested segment: a name and a size in bytes.
type Spec struct {
	Name string            `mapstructure:"name" validate:"required" yaml:"name"`
	Size bytesize.ByteSize `mapstructure:"size" validate:"required,gt=0" yaml:"size"`
}

// Segment is a realized spec: a backing file plus, once mapped, the
// process-held mapping over it. Identity (name, size, path) never changes
// after creation.
type Segment struct {
	Name string
	Size bytesize.ByteSize
	Path string

	data  []byte
	state State
}

// State returns the segment's current lifecycle state.
func (s *Segment) State() State {
	return s.state
}

// Mapped reports whether the segment currently holds a live mapping.
// A mapping exists if and only if the state is StateMapped.
func (s *Segment) Mapped() bool {
	return s.state == StateMapped
}

// maxNameLen matches NAME_MAX on the filesystems we target.
const maxNameLen = 255

// validateName checks that name is usable both as a filesystem entry and as
// a shared memory object name.
func validateName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidName, name, maxNameLen)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// ValidateSpecs checks a batch before any I/O: every name valid and unique,
// every size positive.
func ValidateSpecs(specs []Spec) error {
	if len(specs) == 0 {
		return ErrNoSegments
	}

	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if err := validateName(spec.Name); err != nil {
			return err
		}
		if seen[spec.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateName, spec.Name)
		}
		seen[spec.Name] = true

		if spec.Size == 0 {
			return fmt.Errorf("%w: segment %q", ErrInvalidSize, spec.Name)
		}
	}
	return nil
}

// BuildSpecs pairs positionally correlated name and size lists into specs.
// This is the caller boundary for the --map/--size command surface: the
// count check happens here, before anything touches the filesystem.
func BuildSpecs(names []string, sizes []bytesize.ByteSize) ([]Spec, error) {
	if len(names) != len(sizes) {
		return nil, fmt.Errorf("%w: %d maps, %d sizes", ErrCountMismatch, len(names), len(sizes))
	}

	specs := make([]Spec, len(names))
	for i, name := range names {
		specs[i] = Spec{Name: name, Size: sizes[i]}
	}

	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// TotalSize returns the sum of all requested sizes, used for the mount
// capacity check.
func TotalSize(specs []Spec) bytesize.ByteSize {
	var total bytesize.ByteSize
	for _, spec := range specs {
		total += spec.Size
	}
	return total
}

// backingPath joins the resolved mount directory with the segment name.
func backingPath(dir, name string) string {
	return filepath.Join(dir, name)
}
