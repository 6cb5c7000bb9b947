// Package mount locates a writable in-memory filesystem to host segment
// backing files.
//
// On Linux the glibc shm_open implementation resolves /dev/shm in the same
// way; the resolver exists because the bridge runs inside a Wine prefix
// where shm_open cannot be called directly, so the tmpfs location has to be
// discovered from the host side.
package mount

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/marmos91/shmbridge/internal/bytesize"
)

// Canonical tmpfs mount points probed in order before consulting the
// mount table.
var defaultCandidates = []string{
	"/dev/shm",
	"/run/shm",
}

var (
	// ErrMountNotFound indicates no writable in-memory filesystem was found.
	ErrMountNotFound = errors.New("no writable in-memory filesystem found")

	// ErrInsufficientSpace indicates an in-memory filesystem was found but
	// lacks the free capacity for the requested segments.
	ErrInsufficientSpace = errors.New("insufficient space on in-memory filesystem")
)

// Resolver probes an ordered list of mount candidates and returns the first
// one that is memory-backed, writable and large enough.
//
// The zero value is not usable; construct with NewResolver.
type Resolver struct {
	candidates []string

	// Probe functions, overridable in tests.
	memBacked func(path string) bool
	writable  func(path string) bool
	freeBytes func(path string) (uint64, error)
	discover  func() []string
}

// NewResolver creates a Resolver.
//
// When candidates is empty, the canonical locations (/dev/shm, /run/shm)
// are probed first and the system mount table is consulted as a fallback
// for non-standard tmpfs locations.
func NewResolver(candidates ...string) *Resolver {
	if len(candidates) == 0 {
		candidates = defaultCandidates
	}
	return &Resolver{
		candidates: candidates,
		memBacked:  isMemBacked,
		writable:   isWritable,
		freeBytes:  freeBytes,
		discover:   discoverMemMounts,
	}
}

// Resolve returns the first candidate that passes the memory-backing check,
// the write-permission probe and the capacity check for required bytes.
//
// It has no side effects beyond the write probe (a temporary dotfile that is
// created and immediately removed).
func (r *Resolver) Resolve(required bytesize.ByteSize) (string, error) {
	candidates := append([]string{}, r.candidates...)
	candidates = append(candidates, r.discover()...)

	var spaceErrs []error
	seen := make(map[string]bool, len(candidates))

	for _, dir := range candidates {
		dir = filepath.Clean(dir)
		if seen[dir] {
			continue
		}
		seen[dir] = true

		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if !r.memBacked(dir) {
			continue
		}
		if !r.writable(dir) {
			continue
		}

		free, err := r.freeBytes(dir)
		if err != nil {
			continue
		}
		if free < required.Uint64() {
			spaceErrs = append(spaceErrs, fmt.Errorf("%w: %s has %s free, need %s",
				ErrInsufficientSpace, dir, bytesize.ByteSize(free), required))
			continue
		}

		return dir, nil
	}

	// Report every undersized mount, not just the last one probed, so the
	// operator knows all the places that could be grown.
	if len(spaceErrs) > 0 {
		return "", errors.Join(spaceErrs...)
	}
	return "", ErrMountNotFound
}

// isWritable reports whether the current user can create files in dir.
// The probe file is removed immediately; its contents are never written.
func isWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".shm-bridge-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// freeBytes returns the free capacity of the filesystem holding path.
func freeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("disk usage for %s: %w", path, err)
	}
	return usage.Free, nil
}
