package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSupervisionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSupervisionRepositoryAdd(t *testing.T) {
	db, mock, cleanup := newSupervisionMock(t)
	defer cleanup()
	repo := NewSupervisionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET version = version + 1, updated_at = $3 WHERE id = $1 AND version = $2")).
		WithArgs("session-1", int64(4), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO supervisions (session_id, teacher_id, assigned_at) VALUES ($1, $2, $3)")).
		WithArgs("session-1", "teacher-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Add(context.Background(), "session-1", "teacher-1", 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupervisionRepositoryAddVersionConflict(t *testing.T) {
	db, mock, cleanup := newSupervisionMock(t)
	defer cleanup()
	repo := NewSupervisionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET version = version + 1, updated_at = $3 WHERE id = $1 AND version = $2")).
		WithArgs("session-1", int64(4), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Add(context.Background(), "session-1", "teacher-1", 4)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupervisionRepositoryRemove(t *testing.T) {
	db, mock, cleanup := newSupervisionMock(t)
	defer cleanup()
	repo := NewSupervisionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET version = version + 1, updated_at = $3 WHERE id = $1 AND version = $2")).
		WithArgs("session-1", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM supervisions WHERE session_id = $1 AND teacher_id = $2")).
		WithArgs("session-1", "teacher-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Remove(context.Background(), "session-1", "teacher-1", 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupervisionRepositoryRemoveMissingEdge(t *testing.T) {
	db, mock, cleanup := newSupervisionMock(t)
	defer cleanup()
	repo := NewSupervisionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET version = version + 1, updated_at = $3 WHERE id = $1 AND version = $2")).
		WithArgs("session-1", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM supervisions WHERE session_id = $1 AND teacher_id = $2")).
		WithArgs("session-1", "teacher-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Remove(context.Background(), "session-1", "teacher-1", 7)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupervisionRepositoryExistsAndCount(t *testing.T) {
	db, mock, cleanup := newSupervisionMock(t)
	defer cleanup()
	repo := NewSupervisionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM supervisions WHERE session_id = $1 AND teacher_id = $2 LIMIT 1")).
		WithArgs("session-1", "teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "session-1", "teacher-1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM supervisions WHERE session_id = $1 AND teacher_id = $2 LIMIT 1")).
		WithArgs("session-1", "teacher-2").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.Exists(context.Background(), "session-1", "teacher-2")
	require.NoError(t, err)
	assert.False(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM supervisions WHERE session_id = $1")).
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountBySession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
