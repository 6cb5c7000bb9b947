package segment

import (
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/shmbridge/internal/logger"
)

// Cleanup removes stale backing files by name, independent of any live
// mapping. It exists to repair the residue a hard-terminated bridge leaves
// behind: SIGKILL skips teardown, but the files stay on the mount.
//
// A missing file is an already-satisfied goal, not an error, so running
// Cleanup twice in a row is idempotent: the second pass deletes nothing and
// reports nothing. Files on the mount that are not named are left alone.
// Cleanup never creates or maps anything.
//
// It returns the number of files actually removed.
func Cleanup(dir string, names []string) (int, error) {
	if len(names) == 0 {
		return 0, ErrNoSegments
	}

	var (
		removed int
		errs    []error
	)

	for _, name := range names {
		if err := validateName(name); err != nil {
			errs = append(errs, err)
			continue
		}

		path := backingPath(dir, name)
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
			logger.Info("removed stale backing file",
				logger.KeySegment, name,
				logger.KeyPath, path)
		case os.IsNotExist(err):
			logger.Debug("backing file already absent",
				logger.KeySegment, name,
				logger.KeyPath, path)
		default:
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}

	return removed, errors.Join(errs...)
}
