package models

import "time"

// Grade is a reference tier defining a teacher's weekly supervision target.
// Created and edited by administration only; read-only to the allocation engine.
type Grade struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	TargetHours int       `db:"target_hours" json:"target_hours"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
