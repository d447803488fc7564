// Package jobs runs periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// MemberCountRefresher recomputes the cached member counts of all events.
type MemberCountRefresher interface {
	RefreshMemberCounts(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		timeout: time.Minute,
	}
}

// ScheduleMemberCounts runs r on the given schedule. schedule accepts standard
// cron expressions and descriptors such as "@every 10m".
func (s *Scheduler) ScheduleMemberCounts(schedule string, r MemberCountRefresher) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid member count schedule %q: %w", schedule, err)
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := r.RefreshMemberCounts(ctx); err != nil {
			log.Printf("Failed to refresh member counts: %v", err)
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Entries reports the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
