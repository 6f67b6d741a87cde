package jobs

import (
	"time"

	"github.com/go-co-op/gocron"
)

// newRefreshScheduler starts a scheduler that calls fn every interval. The
// first call happens one interval from now; callers run the immediate cycle
// themselves. fn must not block, since Stop waits for running jobs.
func newRefreshScheduler(interval time.Duration, fn func()) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	if _, err := s.Every(interval).WaitForSchedule().Do(fn); err != nil {
		return nil, err
	}
	s.StartAsync()
	return s, nil
}

func stopScheduler(s *gocron.Scheduler) {
	if s != nil {
		s.Stop()
	}
}
