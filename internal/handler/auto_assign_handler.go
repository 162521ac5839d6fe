package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BenAmorMed/ExamSupervisor/internal/service"
	"github.com/BenAmorMed/ExamSupervisor/pkg/response"
)

// AutoAssignHandler exposes the automatic allocation runs to administrators.
type AutoAssignHandler struct {
	autoAssign *service.AutoAssignService
}

// NewAutoAssignHandler constructs an AutoAssignHandler.
func NewAutoAssignHandler(autoAssign *service.AutoAssignService) *AutoAssignHandler {
	return &AutoAssignHandler{autoAssign: autoAssign}
}

// RunBatch godoc
// @Summary Run the batch allocation for all active teachers
// @Tags AutoAssign
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/auto-assign [post]
func (h *AutoAssignHandler) RunBatch(c *gin.Context) {
	if err := h.autoAssign.RunBatch(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "completed"}, nil)
}

// RunForTeacher godoc
// @Summary Fill a single teacher's remaining workload
// @Tags AutoAssign
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/teachers/{id}/auto-assign [post]
func (h *AutoAssignHandler) RunForTeacher(c *gin.Context) {
	assigned, err := h.autoAssign.RunForTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"assigned": assigned}, nil)
}
