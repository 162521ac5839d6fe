package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
	"github.com/BenAmorMed/ExamSupervisor/pkg/export"
)

type fakeRosterSource struct {
	session *models.Session
	roster  []models.RosterEntry
}

func (f *fakeRosterSource) FindByID(_ context.Context, id string) (*models.Session, error) {
	if f.session == nil || f.session.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.session, nil
}

func (f *fakeRosterSource) Roster(_ context.Context, _ string) ([]models.RosterEntry, error) {
	return f.roster, nil
}

type fakeScheduleSource struct {
	sessions []models.Session
}

func (f *fakeScheduleSource) ListByTeacher(_ context.Context, _ string) ([]models.Session, error) {
	return f.sessions, nil
}

type capturingPDF struct {
	table    export.Table
	title    string
	subtitle string
}

func (c *capturingPDF) Render(table export.Table, title, subtitle string) ([]byte, error) {
	c.table = table
	c.title = title
	c.subtitle = subtitle
	return []byte("%PDF-"), nil
}

func TestSessionRosterCSV(t *testing.T) {
	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	grade := "Assistant Professor"
	source := &fakeRosterSource{
		session: &models.Session{ID: "s1", ExamDate: day},
		roster: []models.RosterEntry{
			{TeacherID: "t1", FirstName: "Sami", LastName: "Ben Salah", Email: "sami@example.edu", GradeName: &grade, AssignedAt: day.Add(9 * time.Hour)},
			{TeacherID: "t2", FirstName: "Ines", LastName: "Haddad", Email: "ines@example.edu", AssignedAt: day.Add(10 * time.Hour)},
		},
	}
	svc := NewExportService(source, nil, nil, nil, nil, nil)

	payload, filename, err := svc.SessionRosterCSV(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "roster_2026-06-15.csv", filename)

	body := string(payload)
	assert.Contains(t, body, "Last Name,First Name,Email,Grade,Assigned At")
	assert.Contains(t, body, "Ben Salah,Sami,sami@example.edu,Assistant Professor,2026-06-15T09:00:00Z")
	// A missing grade renders as an empty cell, not a literal nil.
	assert.Contains(t, body, "Haddad,Ines,ines@example.edu,,2026-06-15T10:00:00Z")
}

func TestSessionRosterCSVNotFound(t *testing.T) {
	svc := NewExportService(&fakeRosterSource{}, nil, nil, nil, nil, nil)

	_, _, err := svc.SessionRosterCSV(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherSchedulePDF(t *testing.T) {
	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	w := newWorld()
	w.grades["g1"] = models.Grade{ID: "g1", TargetHours: 20}
	w.addTeacher("t1", "g1")

	schedules := &fakeScheduleSource{sessions: []models.Session{{
		ID:       "s1",
		ExamDate: day,
		StartsAt: day.Add(8 * time.Hour),
		EndsAt:   day.Add(10 * time.Hour),
		Rooms:    []string{"A101", "B204"},
	}}}
	pdf := &capturingPDF{}
	svc := NewExportService(nil, schedules, &fakeTeachers{w}, nil, pdf, nil)

	payload, filename, err := svc.TeacherSchedulePDF(context.Background(), "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)

	assert.Equal(t, "Supervision Schedule", pdf.title)
	require.Len(t, pdf.table.Rows, 1)
	assert.Equal(t, []string{"2026-06-15", "08:00", "10:00", "A101, B204"}, pdf.table.Rows[0])
	assert.Contains(t, filename, "schedule_")
	assert.Contains(t, filename, ".pdf")
}

func TestTeacherSchedulePDFUnknownTeacher(t *testing.T) {
	w := newWorld()
	svc := NewExportService(nil, &fakeScheduleSource{}, &fakeTeachers{w}, nil, &capturingPDF{}, nil)

	_, _, err := svc.TeacherSchedulePDF(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
