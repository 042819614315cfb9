// Package scheduler runs the overdue sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

type Sweeper interface {
	RunOverdueSweep(ctx context.Context) (loan.SweepResult, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
}

// New registers the sweep under spec, a standard five-field cron expression or
// a descriptor such as @daily or @every 1h.
func New(spec string, sweeper Sweeper, timeout time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		sweeper: sweeper,
		timeout: timeout,
	}

	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	return s, nil
}

// Sweep runs one overdue sweep. Failures are logged; the next run retries.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.sweeper.RunOverdueSweep(ctx)
	if err != nil {
		slog.Error("scheduled overdue sweep failed", "error", err)
		return
	}

	slog.Info("scheduled overdue sweep done", "processed", res.Processed, "loans", len(res.LoanIDs))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents further runs and waits for a running sweep to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Next is the time of the next scheduled sweep, or zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	return entries[0].Next
}
