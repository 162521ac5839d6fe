package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	"github.com/BenAmorMed/ExamSupervisor/internal/repository"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
)

const (
	// Sessions more than this many days after the earliest exam stay out of
	// the batch pool; they remain open for manual selection.
	batchCutoffDays = 3
	// The batch fires exactly this many days before the first exam.
	triggerLeadDays = 2
	// Attempt budget for the single-teacher run.
	singleRunAttemptBudget = 100
)

type autoAssignTeacherRepo interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActiveTeachers(ctx context.Context) ([]models.Teacher, error)
}

type autoAssignSessionRepo interface {
	ListAvailableForTeacher(ctx context.Context, teacherID string) ([]models.Session, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Session, error)
	EarliestDate(ctx context.Context) (time.Time, bool, error)
}

// Notifier delivers a teacher's updated supervision schedule.
type Notifier interface {
	SendSchedule(ctx context.Context, teacher *models.Teacher, sessions []models.Session) error
}

// AutoAssignService fills teachers' remaining workload with randomly drawn
// available sessions. It is a bounded heuristic search, not an exact solver:
// it stops at full workload, pool exhaustion, or the attempt budget.
type AutoAssignService struct {
	teachers     autoAssignTeacherRepo
	grades       gradeReader
	sessions     autoAssignSessionRepo
	supervisions supervisionStore
	notifier     Notifier
	rng          *rand.Rand
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewAutoAssignService wires the auto allocator. The random source is
// injectable so runs can be reproduced in tests; nil defaults to a
// time-seeded generator.
func NewAutoAssignService(
	teachers autoAssignTeacherRepo,
	grades gradeReader,
	sessions autoAssignSessionRepo,
	supervisions supervisionStore,
	notifier Notifier,
	rng *rand.Rand,
	metrics *MetricsService,
	logger *zap.Logger,
) *AutoAssignService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoAssignService{
		teachers:     teachers,
		grades:       grades,
		sessions:     sessions,
		supervisions: supervisions,
		notifier:     notifier,
		rng:          rng,
		metrics:      metrics,
		logger:       logger,
	}
}

// ShouldTriggerBatch reports whether the batch run fires for the given date:
// exactly two days before the earliest scheduled exam. The caller supplies
// today, so the decision stays clock-free and deterministic under test.
func (s *AutoAssignService) ShouldTriggerBatch(ctx context.Context, today time.Time) (bool, error) {
	earliest, ok, err := s.sessions.EarliestDate(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read earliest session date")
	}
	if !ok {
		return false, nil
	}
	return sameDay(today.AddDate(0, 0, triggerLeadDays), earliest), nil
}

// RunBatch completes the remaining workload of every under-loaded teacher.
// Candidate sessions are restricted to the first batchCutoffDays days of the
// exam period; later sessions stay open for manual selection. One teacher's
// failure never aborts the run; each commit is independently durable, so a
// crash mid-batch keeps the assignments already made.
func (s *AutoAssignService) RunBatch(ctx context.Context) error {
	earliest, ok, err := s.sessions.EarliestDate(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read earliest session date")
	}
	if !ok {
		s.logger.Info("auto-assign batch skipped, no sessions scheduled")
		return nil
	}
	cutoff := earliest.AddDate(0, 0, batchCutoffDays)

	teachers, err := s.teachers.ListActiveTeachers(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	for i := range teachers {
		assigned, err := s.fillTeacher(ctx, teachers[i].ID, &cutoff)
		if err != nil {
			s.logger.Warn("auto-assign failed for teacher",
				zap.String("teacher_id", teachers[i].ID),
				zap.Error(err),
			)
			continue
		}
		if assigned > 0 {
			s.notifySchedule(ctx, teachers[i].ID)
		}
	}

	if s.metrics != nil {
		s.metrics.IncBatchRun()
	}
	s.logger.Info("auto-assign batch finished", zap.Int("teachers", len(teachers)))
	return nil
}

// RunForTeacher fills a single teacher's remaining workload from all eligible
// sessions, with a fixed attempt budget. An incomplete fill is not an error.
// Returns the number of sessions committed.
func (s *AutoAssignService) RunForTeacher(ctx context.Context, teacherID string) (int, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return s.fillTeacher(ctx, teacherID, nil)
}

// fillTeacher is the shared randomized-greedy loop. A nil cutoff admits every
// available session and switches to the fixed single-run budget. Returns how
// many sessions were committed.
func (s *AutoAssignService) fillTeacher(ctx context.Context, teacherID string, cutoff *time.Time) (int, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		return 0, err
	}
	if teacher.GradeID == nil {
		s.logger.Debug("skipping teacher without grade", zap.String("teacher_id", teacherID))
		return 0, nil
	}
	grade, err := s.grades.FindByID(ctx, *teacher.GradeID)
	if err != nil {
		return 0, err
	}
	target := TargetMinutes(grade)

	supervised, err := s.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return 0, err
	}
	remaining := target - ConsumedMinutes(supervised)
	if remaining <= 0 {
		return 0, nil
	}

	pool, err := s.resolvePool(ctx, teacherID, cutoff)
	if err != nil {
		return 0, err
	}

	assigned := 0
	attempts := 0
	maxAttempts := s.attemptBudget(cutoff, len(pool))

	for remaining > 0 && len(pool) > 0 && attempts < maxAttempts {
		attempts++

		idx := s.rng.Intn(len(pool))
		candidate := pool[idx]

		if OverlapsAny(supervised, &candidate) || candidate.DurationMinutes() > remaining {
			pool = append(pool[:idx], pool[idx+1:]...)
			continue
		}

		if err := s.supervisions.Add(ctx, candidate.ID, teacherID, candidate.Version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				// Someone raced us onto this session; drop it and keep going.
				pool = append(pool[:idx], pool[idx+1:]...)
				continue
			}
			return assigned, err
		}

		assigned++
		attempts = 0
		if s.metrics != nil {
			s.metrics.IncAssignment("auto")
		}

		supervised, err = s.sessions.ListByTeacher(ctx, teacherID)
		if err != nil {
			return assigned, err
		}
		remaining = target - ConsumedMinutes(supervised)

		// Capacity and membership changed; resolve availability again so the
		// next draw never works from a stale snapshot.
		pool, err = s.resolvePool(ctx, teacherID, cutoff)
		if err != nil {
			return assigned, err
		}
		maxAttempts = s.attemptBudget(cutoff, len(pool))
	}

	s.logger.Info("auto-assign finished for teacher",
		zap.String("teacher_id", teacherID),
		zap.Int("assigned", assigned),
		zap.Int("remaining_minutes", remaining),
	)
	return assigned, nil
}

func (s *AutoAssignService) resolvePool(ctx context.Context, teacherID string, cutoff *time.Time) ([]models.Session, error) {
	pool, err := s.sessions.ListAvailableForTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if cutoff == nil {
		return pool, nil
	}
	filtered := pool[:0]
	for i := range pool {
		if !pool[i].ExamDate.After(*cutoff) {
			filtered = append(filtered, pool[i])
		}
	}
	return filtered, nil
}

func (s *AutoAssignService) attemptBudget(cutoff *time.Time, poolSize int) int {
	if cutoff == nil {
		return singleRunAttemptBudget
	}
	return 2 * poolSize
}

func (s *AutoAssignService) notifySchedule(ctx context.Context, teacherID string) {
	if s.notifier == nil {
		return
	}
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		s.logger.Warn("failed to reload teacher for notification", zap.String("teacher_id", teacherID), zap.Error(err))
		return
	}
	sessions, err := s.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Warn("failed to load schedule for notification", zap.String("teacher_id", teacherID), zap.Error(err))
		return
	}
	if err := s.notifier.SendSchedule(ctx, teacher, sessions); err != nil {
		s.logger.Warn("failed to send schedule notification", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}
