package distlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunExclusiveNoOverlap(t *testing.T) {
	locker := NewFileLocker(t.TempDir())

	type interval struct {
		enter time.Time
		exit  time.Time
	}

	const workers = 8
	var (
		mu        sync.Mutex
		intervals []interval
		wg        sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.RunExclusive(context.Background(), "test-lock", func(ctx context.Context) error {
				iv := interval{enter: time.Now()}
				time.Sleep(5 * time.Millisecond)
				iv.exit = time.Now()
				mu.Lock()
				intervals = append(intervals, iv)
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, intervals, workers)
	for i := range intervals {
		for j := range intervals {
			if i == j {
				continue
			}
			overlaps := intervals[i].enter.Before(intervals[j].exit) &&
				intervals[j].enter.Before(intervals[i].exit)
			require.False(t, overlaps, "critical sections %d and %d overlap", i, j)
		}
	}
}

func TestRunExclusivePropagatesError(t *testing.T) {
	locker := NewFileLocker(t.TempDir())

	sentinel := errors.New("boom")
	err := locker.RunExclusive(context.Background(), "test-lock", func(ctx context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// The lock must have been released despite the error.
	err = locker.RunExclusive(context.Background(), "test-lock", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestRunExclusiveMissingDirectory(t *testing.T) {
	locker := NewFileLocker("/nonexistent/lock/dir")

	err := locker.RunExclusive(context.Background(), "test-lock", func(ctx context.Context) error {
		t.Fatal("must not run unlocked")
		return nil
	})
	require.ErrorIs(t, err, ErrLockUnavailable)
}

func TestRunExclusiveHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	locker := NewFileLocker(dir)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.RunExclusive(context.Background(), "test-lock", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := locker.RunExclusive(ctx, "test-lock", func(ctx context.Context) error {
		t.Fatal("must not run while the lock is held")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
