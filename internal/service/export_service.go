package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
	"github.com/BenAmorMed/ExamSupervisor/pkg/export"
)

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title, subtitle string) ([]byte, error)
}

type rosterSource interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Roster(ctx context.Context, sessionID string) ([]models.RosterEntry, error)
}

type scheduleSource interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Session, error)
}

// ExportService renders supervision rosters and teacher schedules into
// downloadable files.
type ExportService struct {
	sessions  rosterSource
	schedules scheduleSource
	teachers  teacherReader
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(sessions rosterSource, schedules scheduleSource, teachers teacherReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{sessions: sessions, schedules: schedules, teachers: teachers, csv: csv, pdf: pdf, logger: logger}
}

// SessionRosterCSV renders the supervisor roster of a session as CSV.
func (s *ExportService) SessionRosterCSV(ctx context.Context, sessionID string) ([]byte, string, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	roster, err := s.sessions.Roster(ctx, sessionID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	rows := make([][]string, 0, len(roster))
	for _, entry := range roster {
		grade := ""
		if entry.GradeName != nil {
			grade = *entry.GradeName
		}
		rows = append(rows, []string{
			entry.LastName,
			entry.FirstName,
			entry.Email,
			grade,
			entry.AssignedAt.UTC().Format(time.RFC3339),
		})
	}
	table := export.Table{
		Headers: []string{"Last Name", "First Name", "Email", "Grade", "Assigned At"},
		Rows:    rows,
	}
	payload, err := s.csv.Render(table)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	filename := fmt.Sprintf("roster_%s.csv", session.ExamDate.Format("2006-01-02"))
	return payload, filename, nil
}

// TeacherSchedulePDF renders a teacher's supervision schedule as PDF. The
// sessions come back ordered by exam date then start time.
func (s *ExportService) TeacherSchedulePDF(ctx context.Context, teacherID string) ([]byte, string, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	sessions, err := s.schedules.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisions")
	}

	rows := make([][]string, 0, len(sessions))
	for _, session := range sessions {
		rows = append(rows, []string{
			session.ExamDate.Format("2006-01-02"),
			session.StartsAt.Format("15:04"),
			session.EndsAt.Format("15:04"),
			strings.Join(session.Rooms, ", "),
		})
	}
	table := export.Table{
		Headers: []string{"Date", "Start", "End", "Rooms"},
		Rows:    rows,
	}
	subtitle := fmt.Sprintf("%s %s", teacher.FirstName, teacher.LastName)
	payload, err := s.pdf.Render(table, "Supervision Schedule", subtitle)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}
	filename := fmt.Sprintf("schedule_%s.pdf", strings.ToLower(strings.ReplaceAll(teacher.LastName, " ", "_")))
	return payload, filename, nil
}
