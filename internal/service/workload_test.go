package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
)

func TestConsumedMinutes(t *testing.T) {
	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	sessions := []models.Session{
		sessionAt(day, 8, 0, 10, 0),
		sessionAt(day, 14, 0, 15, 30),
	}
	assert.Equal(t, 210, ConsumedMinutes(sessions))
	assert.Equal(t, 0, ConsumedMinutes(nil))
}

func TestTargetMinutes(t *testing.T) {
	assert.Equal(t, 1200, TargetMinutes(&models.Grade{TargetHours: 20}))
	assert.Equal(t, 0, TargetMinutes(nil))
}

func TestIsFullExactTargetCountsAsFull(t *testing.T) {
	assert.True(t, IsFull(1200, 1200))
	assert.False(t, IsFull(1080, 1200))
	assert.True(t, IsFull(1260, 1200))
}

func TestChargeScore(t *testing.T) {
	grade := &models.Grade{TargetHours: 20}
	assert.InDelta(t, 28.0, ChargeScore(grade, 2), 0.001)
	assert.InDelta(t, 30.0, ChargeScore(grade, 0), 0.001)
	assert.Zero(t, ChargeScore(nil, 3))
}
