// Package distlock provides the deployment-wide mutual exclusion used to
// serialize shard directory mutations. Implementations must be safe across
// multiple application instances sharing the same backing store, not merely
// within one process.
package distlock

import (
	"context"
	"errors"
)

// ErrLockUnavailable means the lock could not be acquired at all, e.g. the
// shared lock directory is missing or inaccessible. Callers must treat this
// as fatal for the mutation rather than proceeding unlocked.
var ErrLockUnavailable = errors.New("distributed lock unavailable")

// DirectoryLockName is the single advisory lock serializing all directory
// mutations.
const DirectoryLockName = "shard-directory"

// Locker runs a function while holding a named exclusive lock. Acquisition
// blocks until the lock is free or ctx is done; the lock is released on
// every exit path, including a panicking fn.
type Locker interface {
	RunExclusive(ctx context.Context, name string, fn func(ctx context.Context) error) error
}
