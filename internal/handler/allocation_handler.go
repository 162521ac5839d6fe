package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BenAmorMed/ExamSupervisor/internal/middleware"
	"github.com/BenAmorMed/ExamSupervisor/internal/service"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
	"github.com/BenAmorMed/ExamSupervisor/pkg/response"
)

// AllocationHandler exposes the supervision endpoints of the logged-in teacher.
type AllocationHandler struct {
	allocations *service.AllocationService
	exports     *service.ExportService
}

// NewAllocationHandler constructs an AllocationHandler.
func NewAllocationHandler(allocations *service.AllocationService, exports *service.ExportService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations, exports: exports}
}

// Available godoc
// @Summary List sessions the teacher may still choose
// @Tags Supervisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/sessions/available [get]
func (h *AllocationHandler) Available(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sessions, err := h.allocations.ListAvailable(c.Request.Context(), claims.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// MySessions godoc
// @Summary List the teacher's supervised sessions
// @Tags Supervisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/sessions [get]
func (h *AllocationHandler) MySessions(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sessions, err := h.allocations.MySessions(c.Request.Context(), claims.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// SubjectSessions godoc
// @Summary List sessions examining the teacher's own subjects
// @Tags Supervisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/subject-sessions [get]
func (h *AllocationHandler) SubjectSessions(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sessions, err := h.allocations.SessionsForMySubjects(c.Request.Context(), claims.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Workload godoc
// @Summary Get the teacher's supervision workload
// @Tags Supervisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/workload [get]
func (h *AllocationHandler) Workload(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	workload, err := h.allocations.GetWorkload(c.Request.Context(), claims.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workload, nil)
}

// Choose godoc
// @Summary Choose a session to supervise
// @Tags Supervisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/sessions/{id} [post]
func (h *AllocationHandler) Choose(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.allocations.Choose(c.Request.Context(), claims.TeacherID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Cancel godoc
// @Summary Cancel a supervision
// @Tags Supervisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/sessions/{id} [delete]
func (h *AllocationHandler) Cancel(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.allocations.Cancel(c.Request.Context(), claims.TeacherID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SchedulePDF godoc
// @Summary Download the teacher's supervision schedule as PDF
// @Tags Supervisions
// @Produce application/pdf
// @Success 200 {file} binary
// @Router /me/schedule.pdf [get]
func (h *AllocationHandler) SchedulePDF(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, filename, err := h.exports.TeacherSchedulePDF(c.Request.Context(), claims.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
