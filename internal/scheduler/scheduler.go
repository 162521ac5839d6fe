// Package scheduler drives the daily automatic allocation trigger. The
// trigger decision itself lives in the service layer; this loop only asks the
// question on an interval and enqueues the batch job when the answer is yes.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BenAmorMed/ExamSupervisor/pkg/jobs"
)

// JobTypeAutoAssignBatch identifies the queued batch allocation job.
const JobTypeAutoAssignBatch = "auto_assign_batch"

type batchTrigger interface {
	ShouldTriggerBatch(ctx context.Context, today time.Time) (bool, error)
}

type enqueuer interface {
	Enqueue(job jobs.Job) error
}

// Scheduler periodically evaluates the batch trigger predicate.
type Scheduler struct {
	trigger  batchTrigger
	queue    enqueuer
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	lastFired time.Time
}

// New constructs a Scheduler. The now function defaults to time.Now and is
// only swapped in tests.
func New(trigger batchTrigger, queue enqueuer, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		trigger:  trigger,
		queue:    queue,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Run evaluates the trigger immediately and then on every interval until the
// context is cancelled. Blocking; callers run it in a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	today := s.now().UTC()
	if sameDay(today, s.lastFired) {
		return
	}

	fire, err := s.trigger.ShouldTriggerBatch(ctx, today)
	if err != nil {
		s.logger.Error("batch trigger evaluation failed", zap.Error(err))
		return
	}
	if !fire {
		return
	}

	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeAutoAssignBatch}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue batch allocation job", zap.Error(err))
		return
	}
	s.lastFired = today
	s.logger.Info("batch allocation job enqueued", zap.String("job_id", job.ID))
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
