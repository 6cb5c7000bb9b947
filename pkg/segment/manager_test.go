package segment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/shmbridge/internal/bytesize"
)

// recordingMetrics captures lifecycle observations in call order.
type recordingMetrics struct {
	created []string
	removed []string
}

func (m *recordingMetrics) ObserveCreate(name string, _ uint64) {
	m.created = append(m.created, name)
}

func (m *recordingMetrics) ObserveRemove(name string, _ uint64) {
	m.removed = append(m.removed, name)
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func TestCreateBatch(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	specs := []Spec{
		{Name: "A", Size: 100},
		{Name: "B", Size: 200},
	}
	require.NoError(t, m.Create(specs))

	// Every backing file exists with exactly the requested length.
	assert.Equal(t, int64(100), fileSize(t, filepath.Join(dir, "A")))
	assert.Equal(t, int64(200), fileSize(t, filepath.Join(dir, "B")))

	segs := m.Segments()
	require.Len(t, segs, 2)
	for _, seg := range segs {
		assert.Equal(t, StateMapped, seg.State())
		assert.True(t, seg.Mapped())
		assert.NotNil(t, seg.data)
	}
	assert.Equal(t, "A", segs[0].Name)
	assert.Equal(t, "B", segs[1].Name)
}

func TestCreateMappingIsShared(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)
	require.NoError(t, m.Create([]Spec{{Name: "shared", Size: 16}}))
	t.Cleanup(func() { _ = m.Teardown() })

	seg := m.Segments()[0]
	copy(seg.data, []byte("telemetry"))

	// Bytes written through the mapping must be visible to other processes
	// reading the backing file.
	content, err := os.ReadFile(seg.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("telemetry"), content[:9])
}

func TestCreateRecreatesExisting(t *testing.T) {
	dir := t.TempDir()

	// Simulate a stale file from a hard-terminated earlier run.
	stale := filepath.Join(dir, "A")
	require.NoError(t, os.WriteFile(stale, make([]byte, 999), 0o644))

	m := NewManager(dir, nil)
	require.NoError(t, m.Create([]Spec{{Name: "A", Size: 100}}))

	// Re-registration truncates to the newly requested size.
	assert.Equal(t, int64(100), fileSize(t, stale))
}

func TestCreateDuplicateNameTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	err := m.Create([]Spec{{Name: "A", Size: 100}, {Name: "A", Size: 100}})
	assert.ErrorIs(t, err, ErrDuplicateName)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "validation failure must precede any file creation")
	assert.Empty(t, m.Segments())
}

func TestCreateRollsBackOnMidBatchFailure(t *testing.T) {
	dir := t.TempDir()

	// A directory with the segment's name cannot be truncated over, so
	// segment B fails after A succeeded.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "B"), 0o755))

	metrics := &recordingMetrics{}
	m := NewManager(dir, metrics)

	err := m.Create([]Spec{
		{Name: "A", Size: 100},
		{Name: "B", Size: 200},
		{Name: "C", Size: 300},
	})

	var createErr *CreateError
	require.ErrorAs(t, err, &createErr)
	assert.Equal(t, "B", createErr.Name)

	// A was unwound, C was never attempted.
	assert.NoFileExists(t, filepath.Join(dir, "A"))
	assert.NoFileExists(t, filepath.Join(dir, "C"))
	assert.DirExists(t, filepath.Join(dir, "B"))
	assert.Empty(t, m.Segments())

	assert.Equal(t, []string{"A"}, metrics.created)
	assert.Equal(t, []string{"A"}, metrics.removed)
}

func TestCreateSecondBatchFailureKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	require.NoError(t, m.Create([]Spec{{Name: "A", Size: 100}}))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "C"), 0o755))
	err := m.Create([]Spec{{Name: "B", Size: 100}, {Name: "C", Size: 100}})
	require.Error(t, err)

	// Rollback is scoped to the failing batch.
	assert.FileExists(t, filepath.Join(dir, "A"))
	assert.NoFileExists(t, filepath.Join(dir, "B"))
	require.Len(t, m.Segments(), 1)
	assert.Equal(t, "A", m.Segments()[0].Name)
}

func TestTeardownReverseOrder(t *testing.T) {
	dir := t.TempDir()
	metrics := &recordingMetrics{}
	m := NewManager(dir, metrics)

	require.NoError(t, m.Create([]Spec{
		{Name: "A", Size: 100},
		{Name: "B", Size: 200},
	}))

	require.NoError(t, m.Teardown())

	assert.NoFileExists(t, filepath.Join(dir, "A"))
	assert.NoFileExists(t, filepath.Join(dir, "B"))
	assert.Equal(t, []string{"B", "A"}, metrics.removed, "teardown must run in reverse creation order")

	for _, seg := range m.Segments() {
		assert.Equal(t, StateRemoved, seg.State())
		assert.False(t, seg.Mapped())
	}
}

func TestTeardownIsReentrant(t *testing.T) {
	dir := t.TempDir()
	metrics := &recordingMetrics{}
	m := NewManager(dir, metrics)

	require.NoError(t, m.Create([]Spec{{Name: "A", Size: 100}}))
	require.NoError(t, m.Teardown())
	require.NoError(t, m.Teardown())

	assert.Equal(t, []string{"A"}, metrics.removed, "second teardown must be a no-op")
}

func TestTeardownSurvivesMissingFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	require.NoError(t, m.Create([]Spec{{Name: "A", Size: 100}}))

	// Someone removed the backing file out from under us.
	require.NoError(t, os.Remove(filepath.Join(dir, "A")))

	assert.NoError(t, m.Teardown())
}

func TestTeardownPartialFailureIsRetryable(t *testing.T) {
	dir := t.TempDir()
	metrics := &recordingMetrics{}
	m := NewManager(dir, metrics)

	require.NoError(t, m.Create([]Spec{{Name: "A", Size: 100}}))
	seg := m.Segments()[0]

	// Replace the backing file with a non-empty directory so the removal
	// fails regardless of privileges.
	require.NoError(t, os.Remove(seg.Path))
	require.NoError(t, os.Mkdir(seg.Path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(seg.Path, "stuck"), []byte("x"), 0o644))

	require.Error(t, m.Teardown())

	// The failed release must not count as a removal or reach the terminal
	// state, otherwise the mapped gauges drift and a retry becomes a no-op.
	assert.NotEqual(t, StateRemoved, seg.State())
	assert.Empty(t, metrics.removed)

	require.NoError(t, os.RemoveAll(seg.Path))
	require.NoError(t, m.Teardown())

	assert.Equal(t, StateRemoved, seg.State())
	assert.Equal(t, []string{"A"}, metrics.removed)
}

func TestCreateLargeSparseSegment(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	// 256 MiB via a length-only resize; sparse semantics keep this instant.
	size := bytesize.ByteSize(256 * bytesize.MiB)
	require.NoError(t, m.Create([]Spec{{Name: "big", Size: size}}))
	t.Cleanup(func() { _ = m.Teardown() })

	assert.Equal(t, size.Int64(), fileSize(t, filepath.Join(dir, "big")))
}

func TestCreateInMissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"), nil)

	err := m.Create([]Spec{{Name: "A", Size: 100}})
	var createErr *CreateError
	require.ErrorAs(t, err, &createErr)
	assert.Equal(t, "A", createErr.Name)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
