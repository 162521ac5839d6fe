package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenAmorMed/ExamSupervisor/internal/middleware"
	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	"github.com/BenAmorMed/ExamSupervisor/internal/service"
)

// memStore backs the in-memory repository fakes for handler tests.
type memStore struct {
	teachers map[string]models.Teacher
	grades   map[string]models.Grade
	sessions map[string]*models.Session
	sups     map[string]map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		teachers: make(map[string]models.Teacher),
		grades:   make(map[string]models.Grade),
		sessions: make(map[string]*models.Session),
		sups:     make(map[string]map[string]bool),
	}
}

type memTeachers struct{ m *memStore }

func (f memTeachers) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	t, ok := f.m.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

type memGrades struct{ m *memStore }

func (f memGrades) FindByID(_ context.Context, id string) (*models.Grade, error) {
	g, ok := f.m.grades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &g, nil
}

type memSubjects struct{}

func (memSubjects) ListByTeacher(_ context.Context, _ string) ([]models.Subject, error) {
	return nil, nil
}

type memSessions struct{ m *memStore }

func (f memSessions) List(_ context.Context, _ models.SessionFilter) ([]models.Session, int, error) {
	out := make([]models.Session, 0, len(f.m.sessions))
	for _, s := range f.m.sessions {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f memSessions) FindByID(_ context.Context, id string) (*models.Session, error) {
	s, ok := f.m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (f memSessions) ListAvailableForTeacher(_ context.Context, teacherID string) ([]models.Session, error) {
	var out []models.Session
	for _, s := range f.m.sessions {
		if s.AssignedCount >= s.Capacity || f.m.sups[s.ID][teacherID] {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f memSessions) ListByTeacher(_ context.Context, teacherID string) ([]models.Session, error) {
	var out []models.Session
	for _, s := range f.m.sessions {
		if f.m.sups[s.ID][teacherID] {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f memSessions) ListByTeacherSubjects(_ context.Context, _ string) ([]models.Session, error) {
	return nil, nil
}

type memSupervisions struct{ m *memStore }

func (f memSupervisions) Add(_ context.Context, sessionID, teacherID string, _ int64) error {
	if f.m.sups[sessionID] == nil {
		f.m.sups[sessionID] = make(map[string]bool)
	}
	f.m.sups[sessionID][teacherID] = true
	f.m.sessions[sessionID].AssignedCount++
	f.m.sessions[sessionID].Version++
	return nil
}

func (f memSupervisions) Remove(_ context.Context, sessionID, teacherID string, _ int64) error {
	if !f.m.sups[sessionID][teacherID] {
		return sql.ErrNoRows
	}
	delete(f.m.sups[sessionID], teacherID)
	f.m.sessions[sessionID].AssignedCount--
	f.m.sessions[sessionID].Version++
	return nil
}

func (f memSupervisions) Exists(_ context.Context, sessionID, teacherID string) (bool, error) {
	return f.m.sups[sessionID][teacherID], nil
}

func buildAllocationRouter(m *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	allocations := service.NewAllocationService(
		memTeachers{m}, memGrades{m}, memSubjects{}, memSessions{m}, memSupervisions{m},
		nil, time.Minute, nil, nil,
	)
	h := NewAllocationHandler(allocations, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-Teacher"); id != "" {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{TeacherID: id, Role: models.RoleTeacher})
		}
		c.Next()
	})
	me := router.Group("/me")
	{
		me.GET("/sessions", h.MySessions)
		me.GET("/sessions/available", h.Available)
		me.POST("/sessions/:id", h.Choose)
		me.DELETE("/sessions/:id", h.Cancel)
		me.GET("/workload", h.Workload)
	}
	return router
}

func seedAllocationStore() *memStore {
	m := newMemStore()
	gradeID := "g1"
	m.grades[gradeID] = models.Grade{ID: gradeID, Name: "Assistant Professor", TargetHours: 20}
	m.teachers["t1"] = models.Teacher{ID: "t1", FirstName: "Sami", LastName: "Ben Salah", GradeID: &gradeID, Active: true}

	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	m.sessions["s1"] = &models.Session{
		ID:       "s1",
		ExamDate: day,
		StartsAt: day.Add(8 * time.Hour),
		EndsAt:   day.Add(10 * time.Hour),
		Capacity: 2,
	}
	return m
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAllocationRoutes(t *testing.T) {
	m := seedAllocationStore()
	router := buildAllocationRouter(m)

	t.Run("unauthorized without claims", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/me/workload", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("choose session", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/me/sessions/s1", nil)
		req.Header.Set("X-Test-Teacher", "t1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.True(t, m.sups["s1"]["t1"])
	})

	t.Run("choose unknown session", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/me/sessions/ghost", nil)
		req.Header.Set("X-Test-Teacher", "t1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)
		assert.Contains(t, resp.Body.String(), "NOT_FOUND")
	})

	t.Run("workload reflects assignment", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/me/workload", nil)
		req.Header.Set("X-Test-Teacher", "t1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)

		var envelope struct {
			Data models.Workload `json:"data"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
		assert.Equal(t, 120, envelope.Data.ConsumedMinutes)
		assert.Equal(t, 1200, envelope.Data.TargetMinutes)
	})

	t.Run("my sessions lists the supervised slot", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/me/sessions", nil)
		req.Header.Set("X-Test-Teacher", "t1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"s1"`)
	})

	t.Run("cancel supervision", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, "/me/sessions/s1", nil)
		req.Header.Set("X-Test-Teacher", "t1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNoContent, resp.Code)
		assert.False(t, m.sups["s1"]["t1"])
	})

	t.Run("cancel again is not assigned", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, "/me/sessions/s1", nil)
		req.Header.Set("X-Test-Teacher", "t1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
		assert.Contains(t, resp.Body.String(), "NOT_ASSIGNED")
	})
}
