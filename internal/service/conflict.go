package service

import (
	"time"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
)

// Overlaps reports whether an existing session collides in time with a
// candidate slot. Sessions on different dates never overlap; on the same date
// the intervals are half-open, so slots that exactly touch do not collide.
func Overlaps(existing *models.Session, candidateDate, candidateStart, candidateEnd time.Time) bool {
	if !sameDay(existing.ExamDate, candidateDate) {
		return false
	}
	return existing.StartsAt.Before(candidateEnd) && candidateStart.Before(existing.EndsAt)
}

// OverlapsAny reports whether any of the supervised sessions collides with the
// candidate session.
func OverlapsAny(supervised []models.Session, candidate *models.Session) bool {
	for i := range supervised {
		if Overlaps(&supervised[i], candidate.ExamDate, candidate.StartsAt, candidate.EndsAt) {
			return true
		}
	}
	return false
}

// HasSubjectConflict reports whether the teacher teaches any subject examined
// in the session (conflict of interest).
func HasSubjectConflict(taught []models.Subject, session *models.Session) bool {
	if len(taught) == 0 || len(session.Subjects) == 0 {
		return false
	}
	taughtSet := make(map[string]struct{}, len(taught))
	for _, subject := range taught {
		taughtSet[subject.ID] = struct{}{}
	}
	for _, subject := range session.Subjects {
		if _, ok := taughtSet[subject.ID]; ok {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
