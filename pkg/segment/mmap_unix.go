//go:build unix

package segment

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps the full length of f read-write and shared, so that bytes
// written by any attached process land in the tmpfs backing file.
func mapFile(f *os.File, size int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// unmapFile releases a mapping returned by mapFile.
func unmapFile(data []byte) error {
	return unix.Munmap(data)
}
