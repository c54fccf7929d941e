package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Schedule enqueues a job of Kind every Interval.
type Schedule struct {
	Kind     string
	Interval time.Duration
}

// Scheduler enqueues recurring jobs. Each schedule uses its kind as the
// idempotency key, so a tick while the previous run is still queued or
// running adds nothing.
type Scheduler struct {
	store     *JobStore
	schedules []Schedule
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(store *JobStore, logger *slog.Logger, schedules ...Schedule) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, schedules: schedules, logger: logger}
}

// Run enqueues every schedule once, then on each tick, until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	done := make(chan struct{})
	for _, sch := range s.schedules {
		if sch.Interval <= 0 {
			continue
		}
		go func(sch Schedule) {
			defer func() { done <- struct{}{} }()
			s.loop(ctx, sch)
		}(sch)
	}
	<-ctx.Done()
	for _, sch := range s.schedules {
		if sch.Interval > 0 {
			<-done
		}
	}
}

func (s *Scheduler) loop(ctx context.Context, sch Schedule) {
	s.Trigger(ctx, sch.Kind)
	ticker := time.NewTicker(sch.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Trigger(ctx, sch.Kind)
		}
	}
}

// Trigger enqueues one job of kind unless one is already pending.
func (s *Scheduler) Trigger(ctx context.Context, kind string) *Job {
	job, err := s.store.Enqueue(ctx, &Job{Kind: kind, RequestedBy: "scheduler", IdempotencyKey: kind})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("failed to schedule job", "kind", kind, "error", err)
		}
		return nil
	}
	return job
}
