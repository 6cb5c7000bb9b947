//go:build linux

package mount

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Filesystem magic numbers for memory-backed filesystems.
// See statfs(2); glibc performs the same check when locating its shm
// directory (sysdeps/unix/sysv/linux/shm-directory.c).
const (
	tmpfsMagic = 0x01021994
	ramfsMagic = 0x858458f6
)

// isMemBacked reports whether path lives on a tmpfs or ramfs filesystem.
func isMemBacked(path string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false
	}
	return st.Type == tmpfsMagic || st.Type == ramfsMagic
}

// discoverMemMounts returns tmpfs mount points listed in the system mount
// table, for hosts where the canonical locations are absent.
func discoverMemMounts() []string {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		if f, err = os.Open("/etc/fstab"); err != nil {
			return nil
		}
	}
	defer f.Close()

	var dirs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[2] == "tmpfs" || fields[2] == "shm" {
			dirs = append(dirs, fields[1])
		}
	}
	return dirs
}
