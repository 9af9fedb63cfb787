// Package clock abstracts wall time so feedback timestamps and date-range
// filters can be pinned in tests.
package clock

import (
	"context"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock. Times are UTC and carry no monotonic reading,
// so they survive a JSON round trip unchanged.
type System struct{}

// Now returns the current UTC time truncated to milliseconds.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Func adapts a function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

// Sleep blocks for d or until ctx is done, whichever comes first. It returns
// ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
