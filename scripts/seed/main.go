// Command seed creates the database schema and optionally loads a demo
// dataset for local development.
//
//	go run ./scripts/seed            # schema only
//	go run ./scripts/seed -demo      # schema plus demo accounts and sessions
//	go run ./scripts/seed -drop      # drop everything first
package main

import (
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/BenAmorMed/ExamSupervisor/pkg/config"
	"github.com/BenAmorMed/ExamSupervisor/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS grades (
    id           UUID PRIMARY KEY,
    name         TEXT NOT NULL,
    target_hours INT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS teachers (
    id            UUID PRIMARY KEY,
    first_name    TEXT NOT NULL,
    last_name     TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'teacher',
    grade_id      UUID REFERENCES grades(id),
    active        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS teacher_subjects (
    teacher_id UUID NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
    subject_id UUID NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
    PRIMARY KEY (teacher_id, subject_id)
);

CREATE TABLE IF NOT EXISTS sessions (
    id         UUID PRIMARY KEY,
    exam_date  DATE NOT NULL,
    starts_at  TIMESTAMPTZ NOT NULL,
    ends_at    TIMESTAMPTZ NOT NULL,
    capacity   INT NOT NULL,
    version    BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_rooms (
    session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    room       TEXT NOT NULL,
    PRIMARY KEY (session_id, room)
);

CREATE TABLE IF NOT EXISTS session_subjects (
    session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    subject_id UUID NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
    PRIMARY KEY (session_id, subject_id)
);

CREATE TABLE IF NOT EXISTS supervisions (
    session_id  UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    teacher_id  UUID NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
    assigned_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (session_id, teacher_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_exam_date ON sessions (exam_date, starts_at);
CREATE INDEX IF NOT EXISTS idx_supervisions_teacher ON supervisions (teacher_id);
`

const dropAll = `
DROP TABLE IF EXISTS supervisions, session_subjects, session_rooms, sessions,
    teacher_subjects, teachers, subjects, grades CASCADE;
`

func main() {
	drop := flag.Bool("drop", false, "drop existing tables first")
	demo := flag.Bool("demo", false, "load demo dataset")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	if *drop {
		if _, err := db.Exec(dropAll); err != nil {
			log.Fatalf("drop tables: %v", err)
		}
		log.Println("tables dropped")
	}
	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("create schema: %v", err)
	}
	log.Println("schema ready")

	if *demo {
		if err := loadDemo(db); err != nil {
			log.Fatalf("load demo data: %v", err)
		}
		log.Println("demo data loaded")
	}
}

func loadDemo(db *sqlx.DB) error {
	now := time.Now().UTC()

	gradeID := uuid.NewString()
	if _, err := db.Exec(
		`INSERT INTO grades (id, name, target_hours, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		gradeID, "Assistant Professor", 20, now,
	); err != nil {
		return err
	}

	subjectIDs := make([]string, 0, 3)
	for _, name := range []string{"Microeconomics", "Statistics", "Accounting"} {
		id := uuid.NewString()
		subjectIDs = append(subjectIDs, id)
		if _, err := db.Exec(
			`INSERT INTO subjects (id, name, created_at, updated_at) VALUES ($1, $2, $3, $3)`,
			id, name, now,
		); err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminID := uuid.NewString()
	if _, err := db.Exec(
		`INSERT INTO teachers (id, first_name, last_name, email, password_hash, role, grade_id, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 'admin', NULL, TRUE, $6, $6)`,
		adminID, "Ines", "Haddad", "admin@example.edu", string(hash), now,
	); err != nil {
		return err
	}

	teacherID := uuid.NewString()
	if _, err := db.Exec(
		`INSERT INTO teachers (id, first_name, last_name, email, password_hash, role, grade_id, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 'teacher', $6, TRUE, $7, $7)`,
		teacherID, "Sami", "Ben Salah", "sami@example.edu", string(hash), gradeID, now,
	); err != nil {
		return err
	}
	if _, err := db.Exec(
		`INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)`,
		teacherID, subjectIDs[0],
	); err != nil {
		return err
	}

	examDay := now.AddDate(0, 0, 14).Truncate(24 * time.Hour)
	for i, window := range []struct{ startHour, endHour int }{{8, 10}, {10, 12}, {14, 16}} {
		sessionID := uuid.NewString()
		starts := examDay.Add(time.Duration(window.startHour) * time.Hour)
		ends := examDay.Add(time.Duration(window.endHour) * time.Hour)
		if _, err := db.Exec(
			`INSERT INTO sessions (id, exam_date, starts_at, ends_at, capacity, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, 0, $6, $6)`,
			sessionID, examDay, starts, ends, 2, now,
		); err != nil {
			return err
		}
		if _, err := db.Exec(
			`INSERT INTO session_rooms (session_id, room) VALUES ($1, $2)`,
			sessionID, []string{"A101", "B204", "C12"}[i],
		); err != nil {
			return err
		}
		if _, err := db.Exec(
			`INSERT INTO session_subjects (session_id, subject_id) VALUES ($1, $2)`,
			sessionID, subjectIDs[i%len(subjectIDs)],
		); err != nil {
			return err
		}
	}
	return nil
}
