package service

import "github.com/BenAmorMed/ExamSupervisor/internal/models"

// Workload arithmetic. Pure functions over freshly loaded state: values are
// recomputed on every call and never cached across a mutation.

// ConsumedMinutes sums the durations of the supervised sessions.
func ConsumedMinutes(sessions []models.Session) int {
	total := 0
	for i := range sessions {
		total += sessions[i].DurationMinutes()
	}
	return total
}

// TargetMinutes is the workload ceiling derived from the grade's weekly hours.
func TargetMinutes(grade *models.Grade) int {
	if grade == nil {
		return 0
	}
	return grade.TargetHours * 60
}

// IsFull reports whether the consumed minutes reached the target. Exactly
// equal counts as full.
func IsFull(consumedMinutes, targetMinutes int) bool {
	return consumedMinutes >= targetMinutes
}

// ChargeScore is the informational charge figure shown to staff. It never
// gates an allocation decision.
func ChargeScore(grade *models.Grade, subjectCount int) float64 {
	if grade == nil {
		return 0
	}
	return float64(grade.TargetHours)*1.5 - float64(subjectCount)
}
