package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
)

// SessionRepository manages persistence for exam sessions, their rooms and
// examined subjects. Supervisor membership lives in SupervisionRepository.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `s.id, s.exam_date, s.starts_at, s.ends_at, s.capacity, s.version, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM supervisions sv WHERE sv.session_id = s.id) AS assigned_count`

// List returns sessions ordered by date then start time, plus total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM sessions s ORDER BY s.exam_date ASC, s.starts_at ASC LIMIT %d OFFSET %d`, sessionColumns, size, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sessions`); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	if err := r.attachDetails(ctx, sessions); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// FindByID fetches a session with its rooms and subjects.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions s WHERE s.id = $1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	sessions := []models.Session{session}
	if err := r.attachDetails(ctx, sessions); err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

// EarliestDate returns the exam date of the earliest-scheduled session.
// The second return is false when no sessions exist.
func (r *SessionRepository) EarliestDate(ctx context.Context) (time.Time, bool, error) {
	var date time.Time
	err := r.db.GetContext(ctx, &date, `SELECT exam_date FROM sessions ORDER BY exam_date ASC, starts_at ASC LIMIT 1`)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("earliest session date: %w", err)
	}
	return date, true, nil
}

// ListAvailableForTeacher returns sessions the teacher could legally join right
// now: open capacity, not already assigned, and no examined subject the teacher
// teaches. Always a fresh query; the allocators depend on it never being stale.
func (r *SessionRepository) ListAvailableForTeacher(ctx context.Context, teacherID string) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions s
		WHERE (SELECT COUNT(*) FROM supervisions sv WHERE sv.session_id = s.id) < s.capacity
		AND NOT EXISTS (
			SELECT 1 FROM supervisions sv WHERE sv.session_id = s.id AND sv.teacher_id = $1
		)
		AND NOT EXISTS (
			SELECT 1 FROM session_subjects ss
			JOIN teacher_subjects ts ON ts.subject_id = ss.subject_id
			WHERE ss.session_id = s.id AND ts.teacher_id = $1
		)
		ORDER BY s.exam_date ASC, s.starts_at ASC`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, teacherID); err != nil {
		return nil, fmt.Errorf("list available sessions: %w", err)
	}
	if err := r.attachDetails(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListByTeacher returns the sessions a teacher currently supervises, ordered by
// date then start time.
func (r *SessionRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions s
		JOIN supervisions sv ON sv.session_id = s.id
		WHERE sv.teacher_id = $1
		ORDER BY s.exam_date ASC, s.starts_at ASC`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, teacherID); err != nil {
		return nil, fmt.Errorf("list sessions for teacher: %w", err)
	}
	if err := r.attachDetails(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListByTeacherSubjects returns sessions examining any subject the teacher
// teaches, regardless of capacity or membership.
func (r *SessionRepository) ListByTeacherSubjects(ctx context.Context, teacherID string) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM sessions s
		JOIN session_subjects ss ON ss.session_id = s.id
		JOIN teacher_subjects ts ON ts.subject_id = ss.subject_id
		WHERE ts.teacher_id = $1
		ORDER BY s.exam_date ASC, s.starts_at ASC`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, teacherID); err != nil {
		return nil, fmt.Errorf("list sessions for teacher subjects: %w", err)
	}
	if err := r.attachDetails(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Create inserts a session along with its rooms and examined subjects.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session, subjectIDs []string) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO sessions (id, exam_date, starts_at, ends_at, capacity, version, created_at, updated_at)
		VALUES (:id, :exam_date, :starts_at, :ends_at, :capacity, 0, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := replaceSessionLinks(ctx, tx, session.ID, session.Rooms, subjectIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}
	return nil
}

// Update modifies a session's schedule fields, rooms and subjects.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session, subjectIDs []string) error {
	session.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE sessions SET exam_date = :exam_date, starts_at = :starts_at, ends_at = :ends_at,
		capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_rooms WHERE session_id = $1`, session.ID); err != nil {
		return fmt.Errorf("clear session rooms: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_subjects WHERE session_id = $1`, session.ID); err != nil {
		return fmt.Errorf("clear session subjects: %w", err)
	}
	if err := replaceSessionLinks(ctx, tx, session.ID, session.Rooms, subjectIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update session: %w", err)
	}
	return nil
}

// Delete removes a session and its dependent rows.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Roster returns the supervisors assigned to a session, with grade names.
func (r *SessionRepository) Roster(ctx context.Context, sessionID string) ([]models.RosterEntry, error) {
	const query = `SELECT t.id AS teacher_id, t.first_name, t.last_name, t.email, g.name AS grade_name, sv.assigned_at
		FROM supervisions sv
		JOIN teachers t ON t.id = sv.teacher_id
		LEFT JOIN grades g ON g.id = t.grade_id
		WHERE sv.session_id = $1
		ORDER BY t.last_name ASC, t.first_name ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, sessionID); err != nil {
		return nil, fmt.Errorf("session roster: %w", err)
	}
	return roster, nil
}

func replaceSessionLinks(ctx context.Context, tx *sqlx.Tx, sessionID string, rooms []string, subjectIDs []string) error {
	for _, room := range rooms {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_rooms (session_id, room) VALUES ($1, $2)`,
			sessionID, room); err != nil {
			return fmt.Errorf("insert session room: %w", err)
		}
	}
	for _, subjectID := range subjectIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_subjects (session_id, subject_id) VALUES ($1, $2)`,
			sessionID, subjectID); err != nil {
			return fmt.Errorf("insert session subject: %w", err)
		}
	}
	return nil
}

type sessionRoomRow struct {
	SessionID string `db:"session_id"`
	Room      string `db:"room"`
}

type sessionSubjectRow struct {
	SessionID string `db:"session_id"`
	models.Subject
}

func (r *SessionRepository) attachDetails(ctx context.Context, sessions []models.Session) error {
	if len(sessions) == 0 {
		return nil
	}

	ids := make([]string, 0, len(sessions))
	index := make(map[string]*models.Session, len(sessions))
	for i := range sessions {
		ids = append(ids, sessions[i].ID)
		index[sessions[i].ID] = &sessions[i]
	}

	roomQuery, roomArgs, err := sqlx.In(`SELECT session_id, room FROM session_rooms WHERE session_id IN (?) ORDER BY room ASC`, ids)
	if err != nil {
		return fmt.Errorf("build room query: %w", err)
	}
	var rooms []sessionRoomRow
	if err := r.db.SelectContext(ctx, &rooms, r.db.Rebind(roomQuery), roomArgs...); err != nil {
		return fmt.Errorf("load session rooms: %w", err)
	}
	for _, row := range rooms {
		if session, ok := index[row.SessionID]; ok {
			session.Rooms = append(session.Rooms, row.Room)
		}
	}

	subjectQuery, subjectArgs, err := sqlx.In(`SELECT ss.session_id, sub.id, sub.name, sub.created_at, sub.updated_at
		FROM session_subjects ss
		JOIN subjects sub ON sub.id = ss.subject_id
		WHERE ss.session_id IN (?)
		ORDER BY sub.name ASC`, ids)
	if err != nil {
		return fmt.Errorf("build subject query: %w", err)
	}
	var subjects []sessionSubjectRow
	if err := r.db.SelectContext(ctx, &subjects, r.db.Rebind(subjectQuery), subjectArgs...); err != nil {
		return fmt.Errorf("load session subjects: %w", err)
	}
	for _, row := range subjects {
		if session, ok := index[row.SessionID]; ok {
			session.Subjects = append(session.Subjects, row.Subject)
		}
	}

	return nil
}
