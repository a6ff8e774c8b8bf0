package distlock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const flockRetryDelay = 50 * time.Millisecond

// FileLocker implements Locker with an exclusive lock file in a shared
// directory. It is the variant for engines without a native distributed
// lock (sqlite); every instance must mount the same directory.
type FileLocker struct {
	dir string
}

// NewFileLocker constructs a FileLocker rooted at the shared directory.
func NewFileLocker(dir string) *FileLocker {
	if dir == "" {
		panic("file locker requires a lock directory")
	}
	return &FileLocker{dir: dir}
}

// RunExclusive acquires <dir>/<name>.lock, runs fn, and releases the lock on
// every exit path.
func (l *FileLocker) RunExclusive(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	info, err := os.Stat(l.dir)
	if err != nil {
		return fmt.Errorf("%w: lock directory %s: %v", ErrLockUnavailable, l.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrLockUnavailable, l.dir)
	}

	lock := flock.New(filepath.Join(l.dir, name+".lock"))
	locked, err := lock.TryLockContext(ctx, flockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: acquire %s: %v", ErrLockUnavailable, name, err)
	}
	if !locked {
		return fmt.Errorf("%w: acquire %s", ErrLockUnavailable, name)
	}
	defer lock.Unlock() // nolint:errcheck

	return fn(ctx)
}

var _ Locker = (*FileLocker)(nil)
