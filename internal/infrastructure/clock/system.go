package clock

import (
	"context"
	"time"
)

// System is the real wall-clock implementation of ports.Clock.
type System struct{}

// New returns a System clock.
func New() *System {
	return &System{}
}

func (*System) Now() time.Time {
	return time.Now()
}

func (*System) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
