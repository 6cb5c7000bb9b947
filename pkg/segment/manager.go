package segment

import (
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/shmbridge/internal/logger"
)

// Metrics receives segment lifecycle observations. Implementations live in
// pkg/metrics; a nil Metrics disables instrumentation with zero overhead.
type Metrics interface {
	ObserveCreate(name string, size uint64)
	ObserveRemove(name string, size uint64)
}

// Manager realizes a batch of segment specs as mapped, resident segments
// and owns their release.
//
// A Manager is exclusively owned by a single goroutine for its whole
// lifetime: creation proceeds strictly in input order and the only other
// writer to the backing files is the guest process, whose bytes the manager
// never inspects. No internal locking is needed.
type Manager struct {
	dir      string
	segments []*Segment
	metrics  Metrics
}

// NewManager creates a Manager placing backing files in dir, which must be
// a previously resolved in-memory mount. metrics may be nil.
func NewManager(dir string, metrics Metrics) *Manager {
	return &Manager{
		dir:     dir,
		metrics: metrics,
	}
}

// Dir returns the mount directory backing this manager's segments.
func (m *Manager) Dir() string {
	return m.dir
}

// Segments returns the realized segments in creation order.
func (m *Manager) Segments() []*Segment {
	return m.segments
}

// Create realizes the batch atomically: either every spec ends up created
// and mapped, or nothing is left behind.
//
// Specs are processed in input order. On the first failure the remaining
// specs are never attempted and the segments already realized in this call
// are unwound in reverse order (mapping released, file deleted) before the
// error is returned.
//
// Re-running with a name whose backing file already exists is not an
// error: the file is truncated and recreated at the newly requested size,
// so stale state from an improperly terminated run is repaired in place.
func (m *Manager) Create(specs []Spec) error {
	if err := ValidateSpecs(specs); err != nil {
		return err
	}

	created := make([]*Segment, 0, len(specs))
	for _, spec := range specs {
		seg, err := m.createOne(spec)
		if err != nil {
			m.rollback(created)
			return err
		}
		created = append(created, seg)

		logger.Info("created tmpfs backed mapping",
			logger.KeyMount, m.dir,
			logger.KeySegment, seg.Name,
			logger.KeySize, seg.Size.Uint64())
	}

	m.segments = append(m.segments, created...)
	return nil
}

// createOne creates, sizes and maps a single backing file.
func (m *Manager) createOne(spec Spec) (*Segment, error) {
	seg := &Segment{
		Name:  spec.Name,
		Size:  spec.Size,
		Path:  backingPath(m.dir, spec.Name),
		state: StateUnmapped,
	}

	// A leftover entry that is not a regular file (directory, symlink,
	// device) is never truncated over.
	if info, err := os.Lstat(seg.Path); err == nil && !info.Mode().IsRegular() {
		return nil, &CreateError{Name: seg.Name, Err: fmt.Errorf("existing %s is not a regular file", seg.Path)}
	}

	f, err := os.OpenFile(seg.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &CreateError{Name: seg.Name, Err: err}
	}
	defer f.Close()

	// Length-only resize. tmpfs gives us a sparse file, so this stays O(1)
	// no matter how large the segment is; contents are owned by whoever
	// attaches and writes.
	if err := f.Truncate(seg.Size.Int64()); err != nil {
		m.discard(seg)
		return nil, &CreateError{Name: seg.Name, Err: fmt.Errorf("truncate to %d bytes: %w", seg.Size.Uint64(), err)}
	}

	info, err := f.Stat()
	if err != nil {
		m.discard(seg)
		return nil, &CreateError{Name: seg.Name, Err: err}
	}
	if info.Size() != seg.Size.Int64() {
		m.discard(seg)
		return nil, &CreateError{Name: seg.Name, Err: fmt.Errorf("backing file is %d bytes, want %d", info.Size(), seg.Size.Uint64())}
	}
	seg.state = StateCreated

	data, err := mapFile(f, seg.Size.Int64())
	if err != nil {
		m.discard(seg)
		return nil, &MapError{Name: seg.Name, Err: err}
	}

	// The file descriptor can be closed now; the mapping keeps the backing
	// store referenced.
	seg.data = data
	seg.state = StateMapped

	if m.metrics != nil {
		m.metrics.ObserveCreate(seg.Name, seg.Size.Uint64())
	}
	return seg, nil
}

// discard removes the backing file of a segment that failed mid-creation.
func (m *Manager) discard(seg *Segment) {
	if err := os.Remove(seg.Path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove partial backing file",
			logger.KeyPath, seg.Path,
			logger.KeyError, err)
	}
	seg.state = StateRemoved
}

// rollback unwinds segments created earlier in a failed batch, newest
// first, so the batch leaves no partial files behind.
func (m *Manager) rollback(created []*Segment) {
	for i := len(created) - 1; i >= 0; i-- {
		if err := m.release(created[i]); err != nil {
			logger.Warn("rollback release failed",
				logger.KeySegment, created[i].Name,
				logger.KeyError, err)
		}
	}
}

// release unmaps a segment and deletes its backing file. It is safe to call
// more than once per segment; the second call is a no-op, which lets the
// teardown path and the rollback path share it.
//
// On partial failure the segment stays out of StateRemoved and no removal
// is observed, so a retry can finish the job and the mapped gauges keep
// matching what is actually held. Steps that did succeed are not repeated.
func (m *Manager) release(seg *Segment) error {
	if seg.state == StateRemoved {
		return nil
	}

	var errs []error

	if seg.data != nil {
		if err := unmapFile(seg.data); err != nil {
			errs = append(errs, fmt.Errorf("unmap %q: %w", seg.Name, err))
		} else {
			seg.data = nil
		}
	}

	if err := os.Remove(seg.Path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove %s: %w", seg.Path, err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	seg.state = StateRemoved

	if m.metrics != nil {
		m.metrics.ObserveRemove(seg.Name, seg.Size.Uint64())
	}

	logger.Info("removed mapping",
		logger.KeySegment, seg.Name,
		logger.KeyPath, seg.Path)

	return nil
}

// Teardown releases every segment in reverse creation order. It is invoked
// from the orderly shutdown path and is safe to call repeatedly.
func (m *Manager) Teardown() error {
	var errs []error
	for i := len(m.segments) - 1; i >= 0; i-- {
		if err := m.release(m.segments[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
