package audio

import (
	"context"
	"time"
)

// Clock is a monotonic time source the scheduler waits on.
type Clock interface {
	// Now returns the time elapsed since an arbitrary fixed point.
	Now() time.Duration
	// Sleep waits for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock returns a Clock backed by the monotonic wall clock.
func SystemClock() Clock {
	return systemClock{start: time.Now()}
}

type systemClock struct {
	start time.Time
}

func (c systemClock) Now() time.Duration {
	return time.Since(c.start)
}

func (c systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
