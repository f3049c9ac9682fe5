package scheduler

import (
	"sync"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	"github.com/go-co-op/gocron"
)

// service drives the Deposit Monitor's periodic tick via gocron, the same
// scheduler library the teacher wires behind ports.SchedulerService.
type service struct {
	scheduler *gocron.Scheduler
	mu        sync.Mutex
	jobs      []*gocron.Job
}

// NewScheduler returns a gocron-backed ports.SchedulerService.
func NewScheduler() ports.SchedulerService {
	return &service{
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

// SchedulePeriodic registers task to run every interval. task must be
// idempotent and non-blocking; the Monitor runs its admissibility RPC checks
// inside the task and offloads each admitted swap's Coordinator run to a
// goroutine.
func (s *service) SchedulePeriodic(interval time.Duration, task func()) error {
	job, err := s.scheduler.Every(interval).Do(task)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	return nil
}
