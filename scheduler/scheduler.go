// Package scheduler runs the recurring maintenance jobs: the session-token
// sweep, the event status sweep, and reminder dispatch. Each job ticks on
// its own fixed interval; overlap between consecutive runs of the same job
// is irrelevant because every run is idempotent.
package scheduler

import (
	"log"
	"sync"
	"time"
)

// Clock supplies the current time to job runs so tests can simulate the
// passage of days.
type Clock func() time.Time

type Job struct {
	Name     string
	Interval time.Duration
	Run      func(now time.Time) error
}

type Scheduler struct {
	clock Clock
	jobs  []Job
	stop  chan struct{}
	wg    sync.WaitGroup
}

func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{clock: clock, stop: make(chan struct{})}
}

func (s *Scheduler) Add(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start launches one ticker goroutine per job. A run that returns an error
// is logged and retried at the next tick; the process never crashes on a
// failed job.
func (s *Scheduler) Start() {
	for _, j := range s.jobs {
		j := j
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(j.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := j.Run(s.clock()); err != nil {
						log.Printf("scheduler: %s job: %v", j.Name, err)
					}
				case <-s.stop:
					return
				}
			}
		}()
	}
}

func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}
