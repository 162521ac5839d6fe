package models

import "time"

// Session is a scheduled exam-supervision slot. Version is the optimistic lock
// bumped on every supervisor change; a stale version fails the commit.
type Session struct {
	ID        string    `db:"id" json:"id"`
	ExamDate  time.Time `db:"exam_date" json:"exam_date"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	AssignedCount int       `db:"assigned_count" json:"assigned_count"`
	Rooms         []string  `json:"rooms,omitempty"`
	Subjects      []Subject `json:"subjects,omitempty"`
}

// DurationMinutes returns the supervised length of the session.
func (s *Session) DurationMinutes() int {
	return int(s.EndsAt.Sub(s.StartsAt) / time.Minute)
}

// RemainingSlots returns the number of open supervisor seats.
func (s *Session) RemainingSlots() int {
	return s.Capacity - s.AssignedCount
}

// Available reports whether the session can still take a supervisor.
func (s *Session) Available() bool {
	return s.AssignedCount < s.Capacity
}

// SessionFilter captures paging for the public session listing.
type SessionFilter struct {
	Page     int
	PageSize int
}

// Supervision is one edge of the teacher-session relation store. Both the
// session's supervisor set and the teacher's session set are views over it.
type Supervision struct {
	SessionID  string    `db:"session_id" json:"session_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// RosterEntry is one supervisor row of a session roster export.
type RosterEntry struct {
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Email      string    `db:"email" json:"email"`
	GradeName  *string   `db:"grade_name" json:"grade_name,omitempty"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}
