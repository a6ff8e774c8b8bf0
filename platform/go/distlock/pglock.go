package distlock

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLocker implements Locker with a session-scoped Postgres advisory
// lock, the native variant for deployments whose directory store lives in
// Postgres. The lock is held by one pooled connection for the duration of
// fn and released on the same connection.
type PostgresLocker struct {
	pool *pgxpool.Pool
}

// NewPostgresLocker constructs a PostgresLocker on the shared pool.
func NewPostgresLocker(pool *pgxpool.Pool) *PostgresLocker {
	if pool == nil {
		panic("postgres locker requires pool")
	}
	return &PostgresLocker{pool: pool}
}

// RunExclusive blocks on pg_advisory_lock for a stable 64-bit key derived
// from name, runs fn, then unlocks. Cancelling ctx aborts the wait; if fn
// has started, the deferred unlock still runs before unwinding.
func (l *PostgresLocker) RunExclusive(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %v", ErrLockUnavailable, err)
	}
	defer conn.Release()

	key := lockKey(name)
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: advisory lock %s: %v", ErrLockUnavailable, name, err)
	}
	defer func() {
		// Unlock with a fresh context so a cancelled caller still releases.
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", key)
	}()

	return fn(ctx)
}

func lockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

var _ Locker = (*PostgresLocker)(nil)
