package models

import "time"

// Teacher roles.
const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Teacher represents a staff member eligible to supervise exams.
// Admin accounts share the table with role "admin" and carry no grade.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	GradeID      *string   `db:"grade_id" json:"grade_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail hydrates a teacher with grade and taught subjects.
type TeacherDetail struct {
	Teacher
	Grade    *Grade    `json:"grade,omitempty"`
	Subjects []Subject `json:"subjects,omitempty"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Role      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Workload summarises a teacher's supervision load. All fields are derived,
// recomputed from current assignments on every request, never stored.
type Workload struct {
	TeacherID        string  `json:"teacher_id"`
	ConsumedMinutes  int     `json:"consumed_minutes"`
	TargetMinutes    int     `json:"target_minutes"`
	RemainingMinutes int     `json:"remaining_minutes"`
	Full             bool    `json:"full"`
	ChargeScore      float64 `json:"charge_score"`
}
