package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
)

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "exam_date", "starts_at", "ends_at", "capacity", "version", "created_at", "updated_at", "assigned_count"})
	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	for _, id := range ids {
		rows.AddRow(id, day, day.Add(8*time.Hour), day.Add(10*time.Hour), 2, int64(0), day, day, 0)
	}
	return rows
}

func expectDetailQueries(mock sqlmock.Sqlmock, sessionID string) {
	mock.ExpectQuery("SELECT session_id, room FROM session_rooms").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "room"}).AddRow(sessionID, "A101"))
	mock.ExpectQuery("SELECT ss.session_id, sub.id, sub.name, sub.created_at, sub.updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "id", "name", "created_at", "updated_at"}).
			AddRow(sessionID, "sub-1", "Mathematics", time.Now(), time.Now()))
}

func TestSessionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM sessions s WHERE s.id = \$1`).
		WithArgs("session-1").
		WillReturnRows(sessionRows("session-1"))
	expectDetailQueries(mock, "session-1")

	session, err := repo.FindByID(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID)
	assert.Equal(t, []string{"A101"}, session.Rooms)
	require.Len(t, session.Subjects, 1)
	assert.Equal(t, "Mathematics", session.Subjects[0].Name)
	assert.Equal(t, 120, session.DurationMinutes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM sessions s WHERE s.id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryEarliestDate(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT exam_date FROM sessions ORDER BY exam_date ASC").
		WillReturnRows(sqlmock.NewRows([]string{"exam_date"}).AddRow(day))

	earliest, ok, err := repo.EarliestDate(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, earliest.Equal(day))

	mock.ExpectQuery("SELECT exam_date FROM sessions ORDER BY exam_date ASC").
		WillReturnError(sql.ErrNoRows)

	_, ok, err = repo.EarliestDate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListAvailableForTeacher(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM sessions s\s+WHERE \(SELECT COUNT\(\*\) FROM supervisions sv WHERE sv.session_id = s.id\) < s.capacity`).
		WithArgs("teacher-1").
		WillReturnRows(sessionRows("session-1"))
	expectDetailQueries(mock, "session-1")

	sessions, err := repo.ListAvailableForTeacher(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "session-1", sessions[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO session_rooms").
		WithArgs(sqlmock.AnyArg(), "A101").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO session_subjects").
		WithArgs(sqlmock.AnyArg(), "sub-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	session := &models.Session{
		ExamDate: day,
		StartsAt: day.Add(8 * time.Hour),
		EndsAt:   day.Add(10 * time.Hour),
		Capacity: 2,
		Rooms:    []string{"A101"},
	}
	require.NoError(t, repo.Create(context.Background(), session, []string{"sub-1"}))
	assert.NotEmpty(t, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	grade := "Assistant Professor"
	mock.ExpectQuery("SELECT t.id AS teacher_id, t.first_name, t.last_name, t.email, g.name AS grade_name, sv.assigned_at").
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "first_name", "last_name", "email", "grade_name", "assigned_at"}).
			AddRow("teacher-1", "Sami", "Ben Salah", "sami@example.edu", grade, time.Now()))

	roster, err := repo.Roster(context.Background(), "session-1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Ben Salah", roster[0].LastName)
	require.NotNil(t, roster[0].GradeName)
	assert.Equal(t, grade, *roster[0].GradeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
