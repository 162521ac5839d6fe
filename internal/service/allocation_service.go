package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	"github.com/BenAmorMed/ExamSupervisor/internal/repository"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
)

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type gradeReader interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
}

type taughtSubjectLister interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error)
}

type sessionReader interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListAvailableForTeacher(ctx context.Context, teacherID string) ([]models.Session, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Session, error)
	ListByTeacherSubjects(ctx context.Context, teacherID string) ([]models.Session, error)
}

type supervisionStore interface {
	Add(ctx context.Context, sessionID, teacherID string, expectedVersion int64) error
	Remove(ctx context.Context, sessionID, teacherID string, expectedVersion int64) error
	Exists(ctx context.Context, sessionID, teacherID string) (bool, error)
}

type sessionListCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const sessionListCachePrefix = "sessions:list:"

// AllocationService implements the manual allocation engine: availability
// browsing, the choose/cancel transaction, and the workload views.
type AllocationService struct {
	teachers     teacherReader
	grades       gradeReader
	subjects     taughtSubjectLister
	sessions     sessionReader
	supervisions supervisionStore
	cache        sessionListCache
	cacheTTL     time.Duration
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewAllocationService wires the manual allocator. The cache may be nil; only
// the public session listing is ever cached, availability never is.
func NewAllocationService(
	teachers teacherReader,
	grades gradeReader,
	subjects taughtSubjectLister,
	sessions sessionReader,
	supervisions supervisionStore,
	cache sessionListCache,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AllocationService{
		teachers:     teachers,
		grades:       grades,
		subjects:     subjects,
		sessions:     sessions,
		supervisions: supervisions,
		cache:        cache,
		cacheTTL:     cacheTTL,
		metrics:      metrics,
		logger:       logger,
	}
}

type cachedSessionPage struct {
	Sessions   []models.Session   `json:"sessions"`
	Pagination *models.Pagination `json:"pagination"`
}

// ListSessions returns all sessions ordered by date then start time.
func (s *AllocationService) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	key := fmt.Sprintf("%s%d:%d", sessionListCachePrefix, filter.Page, filter.PageSize)
	if s.cache != nil {
		var cached cachedSessionPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Sessions, cached.Pagination, nil
		}
	}

	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedSessionPage{Sessions: sessions, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache session list", zap.Error(err))
		}
	}
	return sessions, pagination, nil
}

// ListAvailable returns the sessions the teacher could join right now.
// Resolved fresh on every call; both manual browsing and the auto allocator
// depend on this never serving a stale snapshot.
func (s *AllocationService) ListAvailable(ctx context.Context, teacherID string) ([]models.Session, error) {
	if _, err := s.loadTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListAvailableForTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve availability")
	}
	return sessions, nil
}

// MySessions returns the teacher's current supervisions.
func (s *AllocationService) MySessions(ctx context.Context, teacherID string) ([]models.Session, error) {
	if _, err := s.loadTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supervisions")
	}
	return sessions, nil
}

// SessionsForMySubjects returns sessions examining subjects the teacher
// teaches. A teacher with no subjects gets an empty list.
func (s *AllocationService) SessionsForMySubjects(ctx context.Context, teacherID string) ([]models.Session, error) {
	if _, err := s.loadTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	taught, err := s.subjects.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load taught subjects")
	}
	if len(taught) == 0 {
		return []models.Session{}, nil
	}
	sessions, err := s.sessions.ListByTeacherSubjects(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject sessions")
	}
	return sessions, nil
}

// GetWorkload recomputes the teacher's workload summary from current state.
func (s *AllocationService) GetWorkload(ctx context.Context, teacherID string) (*models.Workload, error) {
	teacher, err := s.loadTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	grade, err := s.loadGrade(ctx, teacher)
	if err != nil {
		return nil, err
	}
	supervised, err := s.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supervisions")
	}
	taught, err := s.subjects.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load taught subjects")
	}

	consumed := ConsumedMinutes(supervised)
	target := TargetMinutes(grade)
	return &models.Workload{
		TeacherID:        teacherID,
		ConsumedMinutes:  consumed,
		TargetMinutes:    target,
		RemainingMinutes: target - consumed,
		Full:             IsFull(consumed, target),
		ChargeScore:      ChargeScore(grade, len(taught)),
	}, nil
}

// Choose validates and commits a single teacher-session assignment. The checks
// run in a fixed order so each failure surfaces its own kind; the commit is an
// optimistic compare-and-swap on the session version, so a concurrent change
// between read and write fails with CONCURRENT_MODIFICATION instead of
// clobbering another teacher's assignment.
func (s *AllocationService) Choose(ctx context.Context, teacherID, sessionID string) (*models.Session, error) {
	teacher, err := s.loadTeacher(ctx, teacherID)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	if !session.Available() {
		s.countRejection(appErrors.ErrCapacityExceeded)
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
	}

	grade, err := s.loadGrade(ctx, teacher)
	if err != nil {
		return nil, err
	}
	supervised, err := s.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supervisions")
	}

	consumed := ConsumedMinutes(supervised)
	target := TargetMinutes(grade)
	if IsFull(consumed, target) {
		s.countRejection(appErrors.ErrWorkloadFull)
		return nil, appErrors.Clone(appErrors.ErrWorkloadFull,
			fmt.Sprintf("supervision workload already complete (%dm of %dm)", consumed, target))
	}
	if consumed+session.DurationMinutes() > target {
		s.countRejection(appErrors.ErrWorkloadExceeded)
		return nil, appErrors.Clone(appErrors.ErrWorkloadExceeded, "")
	}

	if OverlapsAny(supervised, session) {
		s.countRejection(appErrors.ErrTimeConflict)
		return nil, appErrors.Clone(appErrors.ErrTimeConflict, "")
	}

	taught, err := s.subjects.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load taught subjects")
	}
	if HasSubjectConflict(taught, session) {
		s.countRejection(appErrors.ErrSubjectConflict)
		return nil, appErrors.Clone(appErrors.ErrSubjectConflict, "")
	}

	if err := s.supervisions.Add(ctx, sessionID, teacherID, session.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.countRejection(appErrors.ErrConcurrentModification)
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignment")
	}

	s.invalidateSessionCache(ctx)
	if s.metrics != nil {
		s.metrics.IncAssignment("manual")
	}
	s.logger.Info("session chosen",
		zap.String("teacher_id", teacherID),
		zap.String("session_id", sessionID),
	)

	return s.loadSession(ctx, sessionID)
}

// Cancel removes an existing assignment from both sides of the relation.
func (s *AllocationService) Cancel(ctx context.Context, teacherID, sessionID string) error {
	if _, err := s.loadTeacher(ctx, teacherID); err != nil {
		return err
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	assigned, err := s.supervisions.Exists(ctx, sessionID, teacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrNotAssigned, "")
	}

	if err := s.supervisions.Remove(ctx, sessionID, teacherID, session.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return appErrors.Clone(appErrors.ErrConcurrentModification, "")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotAssigned, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel assignment")
	}

	s.invalidateSessionCache(ctx)
	if s.metrics != nil {
		s.metrics.IncCancellation()
	}
	s.logger.Info("session cancelled",
		zap.String("teacher_id", teacherID),
		zap.String("session_id", sessionID),
	)
	return nil
}

func (s *AllocationService) loadTeacher(ctx context.Context, teacherID string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *AllocationService) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *AllocationService) loadGrade(ctx context.Context, teacher *models.Teacher) (*models.Grade, error) {
	if teacher.GradeID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher has no grade assigned")
	}
	grade, err := s.grades.FindByID(ctx, *teacher.GradeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

func (s *AllocationService) invalidateSessionCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, sessionListCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate session cache", zap.Error(err))
	}
}

func (s *AllocationService) countRejection(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncAllocationRejected(appErrors.FromError(err).Code)
}
