package ports

import "time"

// SchedulerService drives the Deposit Monitor's periodic tick (§4.3). The
// admit function is invoked every interval until Stop(); it must be
// idempotent and non-blocking (offload long work to a goroutine).
type SchedulerService interface {
	Start()
	Stop()
	SchedulePeriodic(interval time.Duration, task func()) error
}
