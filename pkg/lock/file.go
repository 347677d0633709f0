// Package lock provides run locks that keep engine ticks from overlapping.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agencykit/automation/pkg/protocol"
)

// staleAfter is how old a lock file may be before it is treated as a
// leftover from a crashed run and stolen.
const staleAfter = time.Hour

// FileLock serializes ticks on a single host through exclusive lock files
// in a shared directory.
type FileLock struct {
	dir string
}

func NewFileLock(dir string) (*FileLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &FileLock{dir: dir}, nil
}

// Acquire creates the named lock file exclusively. An existing fresh file
// means another tick holds the lock; a stale file is removed and retried
// once.
func (l *FileLock) Acquire(_ context.Context, name string) (func(), error) {
	path := filepath.Join(l.dir, name+".lock")

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(file, "pid=%d\n", os.Getpid())
			file.Close()

			return func() { os.Remove(path) }, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil || time.Since(info.ModTime()) < staleAfter {
			return nil, protocol.ErrLockHeld
		}

		os.Remove(path)
	}

	return nil, protocol.ErrLockHeld
}
