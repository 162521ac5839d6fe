package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/BenAmorMed/ExamSupervisor/internal/middleware"
	"github.com/BenAmorMed/ExamSupervisor/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Sessions   *SessionHandler
	Allocation *AllocationHandler
	Grades     *GradeHandler
	Subjects   *SubjectHandler
	Teachers   *TeacherHandler
	AutoAssign *AutoAssignHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the API surface on the gin engine.
func RegisterRoutes(r *gin.Engine, h Handlers, authService *service.AuthService, metricsService *service.MetricsService) {
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	r.POST("/auth/login", h.Auth.Login)
	r.GET("/sessions", h.Sessions.List)
	r.GET("/sessions/:id", h.Sessions.Get)

	me := r.Group("/me", middleware.JWT(authService))
	{
		me.GET("/sessions", h.Allocation.MySessions)
		me.GET("/sessions/available", h.Allocation.Available)
		me.POST("/sessions/:id", h.Allocation.Choose)
		me.DELETE("/sessions/:id", h.Allocation.Cancel)
		me.GET("/subject-sessions", h.Allocation.SubjectSessions)
		me.GET("/workload", h.Allocation.Workload)
		me.GET("/schedule.pdf", h.Allocation.SchedulePDF)
	}

	admin := r.Group("/admin", middleware.JWT(authService), middleware.RequireAdmin())
	{
		admin.GET("/grades", h.Grades.List)
		admin.POST("/grades", h.Grades.Create)
		admin.GET("/grades/:id", h.Grades.Get)
		admin.PUT("/grades/:id", h.Grades.Update)
		admin.DELETE("/grades/:id", h.Grades.Delete)

		admin.GET("/subjects", h.Subjects.List)
		admin.POST("/subjects", h.Subjects.Create)
		admin.GET("/subjects/:id", h.Subjects.Get)
		admin.DELETE("/subjects/:id", h.Subjects.Delete)

		admin.GET("/teachers", h.Teachers.List)
		admin.POST("/teachers", h.Teachers.Create)
		admin.GET("/teachers/:id", h.Teachers.Get)
		admin.PUT("/teachers/:id", h.Teachers.Update)
		admin.DELETE("/teachers/:id", h.Teachers.Deactivate)
		admin.POST("/teachers/:id/auto-assign", h.AutoAssign.RunForTeacher)

		admin.POST("/sessions", h.Sessions.Create)
		admin.PUT("/sessions/:id", h.Sessions.Update)
		admin.DELETE("/sessions/:id", h.Sessions.Delete)
		admin.GET("/sessions/:id/roster.csv", h.Sessions.RosterCSV)

		admin.POST("/auto-assign", h.AutoAssign.RunBatch)
	}
}
