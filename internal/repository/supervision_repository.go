package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrVersionConflict signals that a session changed between read and commit.
// The service layer maps it to the retryable CONCURRENT_MODIFICATION kind.
var ErrVersionConflict = errors.New("session version conflict")

// SupervisionRepository is the single store for the teacher-session relation.
// Both the session's supervisor set and the teacher's supervised set are
// derived views over its rows, so the two sides can never diverge.
type SupervisionRepository struct {
	db *sqlx.DB
}

// NewSupervisionRepository constructs a SupervisionRepository.
func NewSupervisionRepository(db *sqlx.DB) *SupervisionRepository {
	return &SupervisionRepository{db: db}
}

// Add assigns a teacher to a session. The insert only commits when the session
// still carries expectedVersion; the compare-and-swap bump detects any
// concurrent supervisor change made since the caller read the session.
func (r *SupervisionRepository) Add(ctx context.Context, sessionID, teacherID string, expectedVersion int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add supervision: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := bumpSessionVersion(ctx, tx, sessionID, expectedVersion); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO supervisions (session_id, teacher_id, assigned_at) VALUES ($1, $2, $3)`,
		sessionID, teacherID, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert supervision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add supervision: %w", err)
	}
	return nil
}

// Remove withdraws a teacher from a session under the same version guard.
func (r *SupervisionRepository) Remove(ctx context.Context, sessionID, teacherID string, expectedVersion int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove supervision: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := bumpSessionVersion(ctx, tx, sessionID, expectedVersion); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx,
		`DELETE FROM supervisions WHERE session_id = $1 AND teacher_id = $2`,
		sessionID, teacherID)
	if err != nil {
		return fmt.Errorf("delete supervision: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove supervision: %w", err)
	}
	return nil
}

// Exists reports whether the teacher currently supervises the session.
func (r *SupervisionRepository) Exists(ctx context.Context, sessionID, teacherID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		`SELECT 1 FROM supervisions WHERE session_id = $1 AND teacher_id = $2 LIMIT 1`,
		sessionID, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check supervision: %w", err)
	}
	return true, nil
}

// CountBySession returns the number of supervisors assigned to a session.
func (r *SupervisionRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM supervisions WHERE session_id = $1`, sessionID); err != nil {
		return 0, fmt.Errorf("count supervisions: %w", err)
	}
	return count, nil
}

func bumpSessionVersion(ctx context.Context, tx *sqlx.Tx, sessionID string, expectedVersion int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE sessions SET version = version + 1, updated_at = $3 WHERE id = $1 AND version = $2`,
		sessionID, expectedVersion, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bump session version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump session version: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}
