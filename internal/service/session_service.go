package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
)

type sessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session, subjectIDs []string) error
	Update(ctx context.Context, session *models.Session, subjectIDs []string) error
	Delete(ctx context.Context, id string) error
	Roster(ctx context.Context, sessionID string) ([]models.RosterEntry, error)
}

// CreateSessionRequest represents payload for creating exam sessions.
type CreateSessionRequest struct {
	Date       string   `json:"date" validate:"required"`
	StartTime  string   `json:"start_time" validate:"required"`
	EndTime    string   `json:"end_time" validate:"required"`
	Capacity   int      `json:"capacity" validate:"required,min=1,max=50"`
	Rooms      []string `json:"rooms" validate:"omitempty,dive,required,max=50"`
	SubjectIDs []string `json:"subject_ids" validate:"omitempty,dive,uuid4"`
}

// UpdateSessionRequest represents payload for updating exam sessions.
type UpdateSessionRequest struct {
	Date       string   `json:"date" validate:"required"`
	StartTime  string   `json:"start_time" validate:"required"`
	EndTime    string   `json:"end_time" validate:"required"`
	Capacity   int      `json:"capacity" validate:"required,min=1,max=50"`
	Rooms      []string `json:"rooms" validate:"omitempty,dive,required,max=50"`
	SubjectIDs []string `json:"subject_ids" validate:"omitempty,dive,uuid4"`
}

// SessionService orchestrates administrative session management.
type SessionService struct {
	repo      sessionRepository
	cache     sessionListCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, cache sessionListCache, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Create registers a new exam session.
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	examDate, startsAt, endsAt, err := parseSessionTimes(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ExamDate: examDate,
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Capacity: req.Capacity,
		Rooms:    req.Rooms,
	}
	if err := s.repo.Create(ctx, session, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.invalidateListCache(ctx)
	return session, nil
}

// Update modifies an existing exam session. Capacity may not shrink below the
// number of supervisors already assigned.
func (s *SessionService) Update(ctx context.Context, id string, req UpdateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	examDate, startsAt, endsAt, err := parseSessionTimes(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if req.Capacity < session.AssignedCount {
		return nil, appErrors.Clone(appErrors.ErrConflict, "capacity below assigned supervisor count")
	}

	session.ExamDate = examDate
	session.StartsAt = startsAt
	session.EndsAt = endsAt
	session.Capacity = req.Capacity
	session.Rooms = req.Rooms

	if err := s.repo.Update(ctx, session, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.invalidateListCache(ctx)
	return session, nil
}

// Delete removes a session and its supervisions.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.invalidateListCache(ctx)
	return nil
}

// Roster returns the assigned supervisors for a session.
func (s *SessionService) Roster(ctx context.Context, id string) ([]models.RosterEntry, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	roster, err := s.repo.Roster(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

func (s *SessionService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, sessionListCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate session list cache", zap.Error(err))
	}
}

func parseSessionTimes(date, start, end string) (time.Time, time.Time, time.Time, error) {
	examDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	startClock, err := time.Parse("15:04", start)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	endClock, err := time.Parse("15:04", end)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}

	startsAt := time.Date(examDate.Year(), examDate.Month(), examDate.Day(), startClock.Hour(), startClock.Minute(), 0, 0, time.UTC)
	endsAt := time.Date(examDate.Year(), examDate.Month(), examDate.Day(), endClock.Hour(), endClock.Minute(), 0, 0, time.UTC)
	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return examDate, startsAt, endsAt, nil
}
